package verifyingkey

import "fmt"

const (
	SourceFile   = "file"
	SourceSolana = "solana"
)

type VerifyingKeyConfigJson struct {
	Source      string `json:"source"`
	Path        string `json:"path"`
	RpcEndpoint string `json:"rpc_endpoint"`
	Account     string `json:"account"`
	DataOffset  int    `json:"data_offset"`
}

// NewSource builds the configured source. An empty source kind means no
// default key; callers must then supply one per request.
func NewSource(cfg VerifyingKeyConfigJson) (Source, error) {
	switch cfg.Source {
	case "":
		return nil, nil
	case SourceFile:
		return FileSource{Path: cfg.Path}, nil
	case SourceSolana:
		src, err := NewSolanaAccountSource(cfg.RpcEndpoint, cfg.Account, cfg.DataOffset)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("unknown verifying key source %q", cfg.Source)
}
