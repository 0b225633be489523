package credentialexchange

const (
	SELF_NAME        = "sessioncred"
	INI_CONF_SECTION = "bundles"
)

type BaseConfig struct {
	Label            string
	CfgSectionName   string
	StoreInProfile   bool
	ReloadBeforeTime int
}

type CredentialConfig struct {
	BaseConfig BaseConfig
	Endpoint   string
	Region     string
}
