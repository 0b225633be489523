package credentialexchange

import (
	"errors"
	"fmt"
	"time"

	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
	"github.com/zalando/go-keyring"
	ini "gopkg.in/ini.v1"

	"github.com/joachricar/sessioncred/internal/credentialbundle"
	"github.com/joachricar/sessioncred/internal/util"
)

var (
	ErrUnableToLoadBundle         = errors.New("unable to load credential bundle")
	ErrCannotLockDir              = errors.New("unable to create lock dir")
	ErrUnableToRetrieveSections   = errors.New("unable to retrieve sections")
	ErrUnableToLoadDueToLock      = errors.New("cannot load secret due to lock error")
	ErrUnableToAcquireLock        = errors.New("cannot acquire lock")
	ErrFailedToClearSecretStorage = errors.New("failed to clear secret storage on OS")
)

// Keyring is the slice of the OS keyring surface the store needs.
// zalando/go-keyring exposes package functions only, so the default
// implementation wraps those; tests inject their own.
type Keyring interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// SecretStore caches one serialized bundle per label in the OS keyring,
// guarded by a file lock so concurrent invocations do not interleave
// reads and writes.
type SecretStore struct {
	bundle        *credentialbundle.Bundle
	blob          string
	keyring       Keyring
	label         string
	lockDir       string
	locker        lockgate.Locker
	lockResource  string
	secretService string
	secretUser    string
}

func (s *SecretStore) WithLocker(locker lockgate.Locker) *SecretStore {
	s.locker = locker
	return s
}

func (s *SecretStore) WithKeyring(keyring Keyring) *SecretStore {
	s.keyring = keyring
	return s
}

// keyRingImpl is the default keyring implementation
type keyRingImpl struct{}

func (k *keyRingImpl) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}
func (k *keyRingImpl) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}
func (k *keyRingImpl) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

func NewSecretStore(label, namer, baseDir, username string) (*SecretStore, error) {
	lockDir := baseDir + "/" + SELF_NAME + "-lock"
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir: %s, %w", lockDir, ErrCannotLockDir)
	}

	return &SecretStore{
		lockDir:       lockDir,
		locker:        locker,
		keyring:       &keyRingImpl{},
		lockResource:  namer,
		secretService: namer,
		label:         label,
		secretUser:    username,
	}, nil
}

func (s *SecretStore) ensureLock() (func(), error) {
	acquired, lock, err := s.locker.Acquire(s.lockResource, lockgate.AcquireOptions{Shared: false, Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}

	if !acquired {
		return nil, fmt.Errorf("lock on %s not acquired, %w", s.lockResource, ErrUnableToLoadDueToLock)
	}
	return func() {
		if acquired {
			if err := s.locker.Release(lock); err != nil {
				util.Writeln("failed to release lock: %v", err)
			}
		}
	}, nil
}

func (s *SecretStore) load() error {
	release, err := s.ensureLock()
	if err != nil {
		return err
	}
	defer release()

	blob, err := s.keyring.Get(s.secretService, s.secretUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}

	bundle, err := credentialbundle.Deserialize(blob)
	if err != nil {
		return err
	}

	if err := WriteIniSection(s.label); err != nil {
		return err
	}

	s.bundle = bundle
	s.blob = blob
	return nil
}

func (s *SecretStore) save() error {
	release, err := s.ensureLock()
	if err != nil {
		return err
	}

	defer release()

	if err := WriteIniSection(s.label); err != nil {
		return err
	}

	return s.keyring.Set(s.secretService, s.secretUser, s.blob)
}

// Bundle returns the cached bundle, or nil when the keyring holds
// nothing for this label.
func (s *SecretStore) Bundle() (*credentialbundle.Bundle, error) {
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("secret store: %s, %w", err, ErrUnableToLoadBundle)
	}

	if s.bundle == nil && s.blob == "" {
		return nil, nil
	}

	util.Traceln("got credential bundle from OS secret store for %s", s.label)

	return s.bundle, nil
}

func (s *SecretStore) SaveBundle(bundle *credentialbundle.Bundle) error {
	blob, err := bundle.Serialize()
	if err != nil {
		return err
	}
	s.bundle = bundle
	s.blob = blob
	return s.save()
}

func (s *SecretStore) Clear() error {
	return s.keyring.Delete(s.secretService, s.secretUser)
}

// ClearAll loops through all the sections in the INI file
// and deletes each entry from the keyring implementation on the OS
func (s *SecretStore) ClearAll() error {
	srvSections := []string{}
	cfg, err := ini.Load(ConfigIniFile(""))
	if err != nil {
		return fmt.Errorf("unable to get sections from ini: %s, %w", err, ErrUnableToRetrieveSections)
	}

	for _, v := range cfg.Section(INI_CONF_SECTION).ChildSections() {
		srvSections = append(srvSections, trimSectionPrefix(v.Name()))
	}

	for _, v := range srvSections {
		if err := s.keyring.Delete(fmt.Sprintf("%s-%s", SELF_NAME, v), s.secretUser); err != nil {
			return fmt.Errorf("%s, %w", err, ErrFailedToClearSecretStorage)
		}
	}

	return nil
}

func trimSectionPrefix(section string) string {
	return section[len(INI_CONF_SECTION)+1:]
}
