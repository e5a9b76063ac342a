package constants

const (
	AppName      = "counsel"
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "COUNSEL"
)
