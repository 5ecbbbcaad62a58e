package config

const (
	// EnvPrefix is empty because every field declares its full variable name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
