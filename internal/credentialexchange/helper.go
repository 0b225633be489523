package credentialexchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	ini "gopkg.in/ini.v1"

	"github.com/joachricar/sessioncred/internal/credentialbundle"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrConfigFailure   = errors.New("config error")
)

// credProcessOut is where the credential_process document is written.
// Swappable in tests.
var credProcessOut io.Writer = os.Stdout

func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal("unable to get the user home dir")
	}
	return home
}

func ConfigIniFile(basePath string) string {
	var base string
	if basePath != "" {
		base = basePath
	} else {
		base = HomeDir()
	}
	return path.Join(base, fmt.Sprintf(".%s.ini", SELF_NAME))
}

func SessionName(username, selfName string) string {
	return fmt.Sprintf("%s-%s", username, selfName)
}

// SetCredentials routes a bundle to its consumer: a named section of
// the AWS shared credentials file when StoreInProfile is set, the
// credential_process stdout contract otherwise.
func SetCredentials(bundle *credentialbundle.Bundle, config CredentialConfig) error {
	if bundle == nil {
		return ErrMissingBundle
	}
	if config.BaseConfig.StoreInProfile {
		return storeCredentialsInProfile(bundle, config.BaseConfig.CfgSectionName)
	}
	return returnStdOutAsJson(bundle)
}

func storeCredentialsInProfile(bundle *credentialbundle.Bundle, configSection string) error {
	var awsConfPath string

	if overriddenpath, exists := os.LookupEnv("AWS_SHARED_CREDENTIALS_FILE"); exists {
		awsConfPath = overriddenpath
	} else {
		awsCredsPath := path.Join(HomeDir(), ".aws", "credentials")
		if _, err := os.Stat(awsCredsPath); os.IsNotExist(err) {
			os.MkdirAll(path.Dir(awsCredsPath), 0755)
			os.WriteFile(awsCredsPath, []byte{}, 0600)
		}
		awsConfPath = awsCredsPath
	}

	cfg, err := ini.Load(awsConfPath)
	if err != nil {
		return fmt.Errorf("fail to read credentials file: %s, %w", err, ErrConfigFailure)
	}
	cfg.Section(configSection).Key("aws_access_key_id").SetValue(bundle.AccessKeyID())
	cfg.Section(configSection).Key("aws_secret_access_key").SetValue(bundle.SecretAccessKey())
	cfg.Section(configSection).Key("aws_session_token").SetValue(bundle.SessionToken())
	return cfg.SaveTo(awsConfPath)
}

// credProcessDoc is the credential_process v1 payload shape.
type credProcessDoc struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

func returnStdOutAsJson(bundle *credentialbundle.Bundle) error {
	jsonBytes, err := json.Marshal(credProcessDoc{
		Version:         1,
		AccessKeyID:     bundle.AccessKeyID(),
		SecretAccessKey: bundle.SecretAccessKey(),
		SessionToken:    bundle.SessionToken(),
		Expiration:      bundle.Expiration(),
	})
	if err != nil {
		return err
	}
	fmt.Fprint(credProcessOut, string(jsonBytes))
	return nil
}

// ReloadBeforeExpiry returns true if the time
// to expiry is less than the specified time in seconds
// false if there is more than required time in seconds
// before needing to recycle credentials
func ReloadBeforeExpiry(expiry time.Time, reloadBeforeSeconds int) bool {
	now := time.Now().Local()
	diff := expiry.Local().Sub(now)
	return diff.Seconds() < float64(reloadBeforeSeconds)
}

// WriteIniSection records a bundle label in the tool's own config file
// so ClearAll can later enumerate the keyring entries to delete.
func WriteIniSection(label string) error {
	section := fmt.Sprintf("%s.%s", INI_CONF_SECTION, LabelKeyConverter(label))
	iniFile := ConfigIniFile("")
	if _, err := os.Stat(iniFile); os.IsNotExist(err) {
		if err := os.WriteFile(iniFile, []byte{}, 0600); err != nil {
			return fmt.Errorf("fail to create ini file: %v, %w", err, ErrConfigFailure)
		}
	}
	cfg, err := ini.Load(iniFile)
	if err != nil {
		return fmt.Errorf("fail to read ini file: %v, %w", err, ErrConfigFailure)
	}
	if !cfg.HasSection(section) {
		sct, err := cfg.NewSection(section)
		if err != nil {
			return err
		}
		sct.Key("name").SetValue(label)
		return cfg.SaveTo(iniFile)
	}

	return nil
}

func GetAllIniSections() ([]string, error) {
	sections := []string{}
	cfg, err := ini.Load(ConfigIniFile(""))
	if err != nil {
		return nil, err
	}
	for _, v := range cfg.Section(INI_CONF_SECTION).ChildSections() {
		sections = append(sections, strings.Replace(v.Name(), fmt.Sprintf("%s.", INI_CONF_SECTION), "", -1))
	}
	return sections, nil
}

// LabelKeyConverter converts a bundle label to a key safe for keyring
// service names and ini section names.
func LabelKeyConverter(label string) string {
	return strings.ReplaceAll(strings.ReplaceAll(label, ":", "_"), "/", "____")
}

// KeyLabelConverter converts a key back to a label.
func KeyLabelConverter(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "____", "/"), "_", ":")
}
