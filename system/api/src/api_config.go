package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"kyc-attestation/system/api/src/verifyingkey"
	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"
	"kyc-attestation/system/pkg/utilities"

	"github.com/gagliardetto/solana-go"
)

const (
	EnvDatabaseUrl       = "DATABASE_URL"
	EnvClusterSecret     = "MPC_CLUSTER_SECRET"
	ComputationRabbitmq  = "rabbitmq"
	ComputationLocal     = "local"
	defaultProgramId     = "11111111111111111111111111111111"
	defaultCallbackAfter = 300
)

type ApiConfigJson struct {
	LoggerConf       logger.LoggerConfigJson             `json:"logger"`
	RabbitmqConf     rabbitmq.RabbimqConfigJson          `json:"rabbitmq"`
	RestConf         ApiClientRestConfigJson             `json:"rest"`
	DatabaseConf     ApiClientDatabaseConfigJson         `json:"database"`
	AttestationConf  AttestationConfigJson               `json:"attestation"`
	ComputationConf  ComputationConfigJson               `json:"computation"`
	VerifyingKeyConf verifyingkey.VerifyingKeyConfigJson `json:"verifying_key"`
	OutboxConf       OutboxConfigJson                    `json:"outbox"`
}

func (acj ApiConfigJson) ConvertToDomain() ApiConfig {
	return ApiConfig{
		LoggerConf:       acj.LoggerConf.ConvertToDomain(),
		RabbitmqConf:     acj.RabbitmqConf.ConvertToDomain(),
		RestConf:         acj.RestConf.ConvertToDomain(),
		DatabaseConf:     acj.DatabaseConf.ConvertToDomain(),
		AttestationConf:  acj.AttestationConf.ConvertToDomain(),
		ComputationConf:  acj.ComputationConf.ConvertToDomain(),
		VerifyingKeyConf: acj.VerifyingKeyConf,
		OutboxConf:       acj.OutboxConf.ConvertToDomain(),
	}
}

type ApiConfig struct {
	LoggerConf       logger.LoggerConfig
	RabbitmqConf     rabbitmq.RabbitmqConfig
	RestConf         ApiClientRestConfig
	DatabaseConf     ApiClientDatabaseConfig
	AttestationConf  AttestationConfig
	ComputationConf  ComputationConfig
	VerifyingKeyConf verifyingkey.VerifyingKeyConfigJson
	OutboxConf       OutboxConfig
}

func (ac ApiConfig) GetLoggerConfig() logger.LoggerConfig {
	return ac.LoggerConf
}

func (ac ApiConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig {
	return ac.RabbitmqConf
}

func (ac ApiConfig) GetRestApiPort() uint16 {
	return ac.RestConf.Port
}

func (ac ApiConfig) GetDatabaseDriver() string {
	return ac.DatabaseConf.Driver
}

func (ac ApiConfig) GetDatabaseConnectionString() string {
	return ac.DatabaseConf.ConnectionString
}

type ApiClientRestConfigJson struct {
	Port uint16 `json:"port"`
}

type ApiClientRestConfig struct {
	Port uint16
}

func (acrcj ApiClientRestConfigJson) ConvertToDomain() ApiClientRestConfig {
	return ApiClientRestConfig{Port: utilities.Ternary(acrcj.Port == 0, uint16(9000), acrcj.Port)}
}

type ApiClientDatabaseConfigJson struct {
	Driver           string `json:"driver"`
	ConnectionString string `json:"connection_string"`
}

type ApiClientDatabaseConfig struct {
	Driver           string
	ConnectionString string
}

func (acdcj ApiClientDatabaseConfigJson) ConvertToDomain() ApiClientDatabaseConfig {
	return ApiClientDatabaseConfig{
		Driver:           utilities.Ternary(acdcj.Driver == "", "postgres", acdcj.Driver),
		ConnectionString: utilities.EnvOrDefault(EnvDatabaseUrl, acdcj.ConnectionString),
	}
}

type AttestationConfigJson struct {
	AllowSelfAttested bool   `json:"allow_self_attested"`
	ProgramId         string `json:"program_id"`
	IssuerJwkPath     string `json:"issuer_jwk_path"`
	IssuerAlg         string `json:"issuer_alg"`
}

type AttestationConfig struct {
	AllowSelfAttested bool
	ProgramId         string
	IssuerJwkPath     string
	IssuerAlg         string
}

func (acj AttestationConfigJson) ConvertToDomain() AttestationConfig {
	return AttestationConfig{
		AllowSelfAttested: acj.AllowSelfAttested,
		ProgramId:         utilities.Ternary(acj.ProgramId == "", defaultProgramId, acj.ProgramId),
		IssuerJwkPath:     acj.IssuerJwkPath,
		IssuerAlg:         utilities.Ternary(acj.IssuerAlg == "", "ES256", acj.IssuerAlg),
	}
}

func (ac AttestationConfig) ProgramKey() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(ac.ProgramId)
}

type ComputationConfigJson struct {
	Mode                   string `json:"mode"`
	CallbackTimeoutSeconds int    `json:"callback_timeout_seconds"`
	SweepSpec              string `json:"sweep_spec"`
	LocalNodes             int    `json:"local_nodes"`
	ClusterSecretHex       string `json:"cluster_secret_hex"`
	ClusterPublicHex       string `json:"cluster_public_hex"`
}

type ComputationConfig struct {
	Mode             string
	CallbackTimeout  time.Duration
	SweepSpec        string
	LocalNodes       int
	ClusterSecretHex string
	ClusterPublicHex string
}

func (ccj ComputationConfigJson) ConvertToDomain() ComputationConfig {
	timeout := utilities.Ternary(ccj.CallbackTimeoutSeconds <= 0, defaultCallbackAfter, ccj.CallbackTimeoutSeconds)
	return ComputationConfig{
		Mode:             utilities.Ternary(ccj.Mode == "", ComputationRabbitmq, ccj.Mode),
		CallbackTimeout:  time.Duration(timeout) * time.Second,
		SweepSpec:        ccj.SweepSpec,
		LocalNodes:       utilities.Ternary(ccj.LocalNodes < 2, 3, ccj.LocalNodes),
		ClusterSecretHex: utilities.EnvOrDefault(EnvClusterSecret, ccj.ClusterSecretHex),
		ClusterPublicHex: ccj.ClusterPublicHex,
	}
}

// ClusterKeys returns the cluster key pair in local mode. In rabbitmq mode
// only the public half is known.
func (cc ComputationConfig) ClusterKeys() (mpc.KeyPair, error) {
	if cc.ClusterSecretHex != "" {
		var secret [mpc.KeySize]byte
		if err := decodeKey(secret[:], cc.ClusterSecretHex); err != nil {
			return mpc.KeyPair{}, fmt.Errorf("cluster secret: %w", err)
		}
		return mpc.KeyPairFromSecret(secret)
	}

	var kp mpc.KeyPair
	if err := decodeKey(kp.Public[:], cc.ClusterPublicHex); err != nil {
		return kp, fmt.Errorf("cluster public key: %w", err)
	}
	return kp, nil
}

func decodeKey(dst []byte, s string) error {
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

type OutboxConfigJson struct {
	RelaySpec string `json:"relay_spec"`
}

type OutboxConfig struct {
	RelaySpec string
}

func (ocj OutboxConfigJson) ConvertToDomain() OutboxConfig {
	return OutboxConfig(ocj)
}
