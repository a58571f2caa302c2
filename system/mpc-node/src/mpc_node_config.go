package main

import (
	"encoding/hex"
	"fmt"

	"kyc-attestation/system/pkg/logger"
	"kyc-attestation/system/pkg/mpc"
	"kyc-attestation/system/pkg/rabbitmq"
	"kyc-attestation/system/pkg/utilities"
)

const EnvClusterSecret = "MPC_CLUSTER_SECRET"

type MpcNodeConfigJson struct {
	LoggerConf   logger.LoggerConfigJson    `json:"logger"`
	RabbitmqConf rabbitmq.RabbimqConfigJson `json:"rabbitmq"`
	ClusterConf  ClusterConfigJson          `json:"cluster"`
}

func (mncj MpcNodeConfigJson) ConvertToDomain() MpcNodeConfig {
	return MpcNodeConfig{
		LoggerConf:   mncj.LoggerConf.ConvertToDomain(),
		RabbitmqConf: mncj.RabbitmqConf.ConvertToDomain(),
		ClusterConf:  mncj.ClusterConf.ConvertToDomain(),
	}
}

type MpcNodeConfig struct {
	LoggerConf   logger.LoggerConfig
	RabbitmqConf rabbitmq.RabbitmqConfig
	ClusterConf  ClusterConfig
}

func (mnc MpcNodeConfig) GetLoggerConfig() logger.LoggerConfig {
	return mnc.LoggerConf
}

func (mnc MpcNodeConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig {
	return mnc.RabbitmqConf
}

func (mnc MpcNodeConfig) GetRestApiPort() uint16 {
	return 0
}

type ClusterConfigJson struct {
	SecretHex string `json:"secret_hex"`
	Nodes     int    `json:"nodes"`
}

type ClusterConfig struct {
	SecretHex string
	Nodes     int
}

func (ccj ClusterConfigJson) ConvertToDomain() ClusterConfig {
	return ClusterConfig{
		SecretHex: utilities.EnvOrDefault(EnvClusterSecret, ccj.SecretHex),
		Nodes:     utilities.Ternary(ccj.Nodes < 2, 3, ccj.Nodes),
	}
}

func (cc ClusterConfig) KeyPair() (mpc.KeyPair, error) {
	raw, err := hex.DecodeString(cc.SecretHex)
	if err != nil {
		return mpc.KeyPair{}, fmt.Errorf("cluster secret: %w", err)
	}
	var secret [mpc.KeySize]byte
	if len(raw) != len(secret) {
		return mpc.KeyPair{}, fmt.Errorf("cluster secret must be %d bytes, got %d", len(secret), len(raw))
	}
	copy(secret[:], raw)
	return mpc.KeyPairFromSecret(secret)
}
