package attestation

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"kyc-attestation/system/api/src/model"
	"kyc-attestation/system/api/src/verifyingkey"
	"kyc-attestation/system/pkg/mpc"
	reasoncodes "kyc-attestation/system/pkg/reason_codes"
	"kyc-attestation/system/pkg/rest"
	"kyc-attestation/system/pkg/zkp"

	"github.com/gin-gonic/gin"
)

const maxPayloadSize = 64 << 10

var errMalformedRequest = reasoncodes.New(reasoncodes.ErrUnmarshal, "malformed request")

type Handler struct {
	Service *Service
	// Keys resolves the verifying key when a request does not carry one.
	Keys          verifyingkey.Source
	ClusterPublic [mpc.KeySize]byte
}

func NewHandler(service *Service, keys verifyingkey.Source, clusterPublic [mpc.KeySize]byte) *Handler {
	return &Handler{Service: service, Keys: keys, ClusterPublic: clusterPublic}
}

func (h *Handler) Routes() []rest.Route {
	return []rest.Route{
		rest.NewRoute(rest.POST, "v1", "kyc/:subject", h.Initialize),
		rest.NewRoute(rest.GET, "v1", "kyc/:subject", h.Get),
		rest.NewRoute(rest.POST, "v1", "kyc/:subject/attestation", h.SubmitAttestation),
		rest.NewRoute(rest.POST, "v1", "kyc/:subject/verify/proof", h.VerifyProof),
		rest.NewRoute(rest.POST, "v1", "kyc/:subject/verify/mpc", h.VerifyMpc),
		rest.NewRoute(rest.POST, "v1", "kyc/:subject/verify/mpc/:offset/open", h.OpenMpcResult),
	}
}

type RecordDto struct {
	SubjectId       string  `json:"subject_id"`
	RecordAddress   string  `json:"record_address"`
	IsVerified      bool    `json:"is_verified"`
	AttestationHash string  `json:"attestation_hash,omitempty"`
	Status          string  `json:"status"`
	Method          string  `json:"method"`
	LastUpdated     int64   `json:"last_updated"`
	LastError       string  `json:"last_error,omitempty"`
	PendingOffset   *uint64 `json:"pending_offset,omitempty"`
	MpcOffset       *uint64 `json:"mpc_offset,omitempty"`
	MpcResult       string  `json:"mpc_result,omitempty"`
	MpcNonce        string  `json:"mpc_nonce,omitempty"`
}

func toRecordDto(r *model.AttestationRecord) RecordDto {
	return RecordDto{
		SubjectId:       r.SubjectId,
		RecordAddress:   r.RecordAddress,
		IsVerified:      r.IsVerified,
		AttestationHash: r.HashHex(),
		Status:          string(r.Status),
		Method:          string(r.Method),
		LastUpdated:     r.LastUpdated,
		LastError:       r.LastError,
		PendingOffset:   r.PendingOffset,
		MpcOffset:       r.MpcOffset,
		MpcResult:       hex.EncodeToString(r.MpcResult),
		MpcNonce:        hex.EncodeToString(r.MpcNonce),
	}
}

func writeError(c *gin.Context, err error) {
	code, _ := reasoncodes.Classify(err)
	c.JSON(reasoncodes.HttpStatus(err), gin.H{
		"error":       err.Error(),
		"reason_code": code,
	})
}

func (h *Handler) Initialize(c *gin.Context) {
	record, err := h.Service.Initialize(c.Param("subject"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRecordDto(record))
}

func (h *Handler) Get(c *gin.Context) {
	record, err := h.Service.Get(c.Param("subject"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordDto(record))
}

// SubmitAttestation takes the raw attestation bytes as the request body.
func (h *Handler) SubmitAttestation(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadSize+1))
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	if len(raw) > maxPayloadSize {
		writeError(c, fmt.Errorf("%w: larger than %d bytes", ErrInvalidPayload, maxPayloadSize))
		return
	}

	record, err := h.Service.SubmitAttestation(c.Param("subject"), raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordDto(record))
}

type VerifyProofRequest struct {
	VerifyingKeyB64 string   `json:"vk_b64,omitempty"`
	ProofB64        string   `json:"proof_b64"`
	PublicInputsHex []string `json:"public_inputs_hex"`
}

func (h *Handler) VerifyProof(c *gin.Context) {
	var req VerifyProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}

	proof, err := base64.StdEncoding.DecodeString(req.ProofB64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", zkp.ErrProofDeserialize, err))
		return
	}
	inputs, err := zkp.DecodePublicInputsHex(req.PublicInputsHex)
	if err != nil {
		writeError(c, err)
		return
	}

	var vk *zkp.VerifyingKey
	if req.VerifyingKeyB64 != "" {
		raw, err := base64.StdEncoding.DecodeString(req.VerifyingKeyB64)
		if err != nil {
			writeError(c, fmt.Errorf("%w: %v", zkp.ErrVerificationKeyDeserialize, err))
			return
		}
		vk, err = zkp.LoadVerifyingKey(raw)
		if err != nil {
			writeError(c, err)
			return
		}
	} else {
		vk, err = verifyingkey.Load(c.Request.Context(), h.Keys)
		if err != nil {
			writeError(c, err)
			return
		}
	}

	record, err := h.Service.VerifyViaProof(c.Param("subject"), vk, proof, inputs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordDto(record))
}

type VerifyMpcRequest struct {
	Offset        uint64 `json:"offset"`
	PassportCtHex string `json:"passport_ct_hex"`
	PanCtHex      string `json:"pan_ct_hex"`
	PublicKeyHex  string `json:"pubkey_hex"`
	NonceHex      string `json:"nonce_hex"`
}

func (r VerifyMpcRequest) decode() (MpcRequest, error) {
	out := MpcRequest{Offset: r.Offset}
	fields := []struct {
		name string
		hex  string
		dst  []byte
	}{
		{"passport_ct_hex", r.PassportCtHex, out.PassportCt[:]},
		{"pan_ct_hex", r.PanCtHex, out.PanCt[:]},
		{"pubkey_hex", r.PublicKeyHex, out.PublicKey[:]},
		{"nonce_hex", r.NonceHex, out.Nonce[:]},
	}
	for _, f := range fields {
		if err := decodeHexInto(f.dst, f.hex); err != nil {
			return out, fmt.Errorf("%w: %s: %v", errMalformedRequest, f.name, err)
		}
	}
	return out, nil
}

func decodeHexInto(dst []byte, s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("want %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

func (h *Handler) VerifyMpc(c *gin.Context) {
	var body VerifyMpcRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	req, err := body.decode()
	if err != nil {
		writeError(c, err)
		return
	}

	record, err := h.Service.VerifyViaMPC(c.Request.Context(), c.Param("subject"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toRecordDto(record))
}

type OpenMpcRequest struct {
	ClientSecretHex string `json:"client_secret_hex"`
}

// OpenMpcResult settles a stored result with the client secret supplied by the
// requester. The secret is used for this call only.
func (h *Handler) OpenMpcResult(c *gin.Context) {
	offset, err := strconv.ParseUint(c.Param("offset"), 10, 64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: offset: %v", errMalformedRequest, err))
		return
	}

	var body OpenMpcRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	var secret [mpc.KeySize]byte
	if err := decodeHexInto(secret[:], body.ClientSecretHex); err != nil {
		writeError(c, fmt.Errorf("%w: client_secret_hex: %v", errMalformedRequest, err))
		return
	}

	keys, err := mpc.KeyPairFromSecret(secret)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	client, err := mpc.NewClient(keys, h.ClusterPublic)
	if err != nil {
		writeError(c, err)
		return
	}

	record, err := h.Service.ApplyMPCOutcome(c.Param("subject"), offset, client)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordDto(record))
}
