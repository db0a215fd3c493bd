package configfile

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RepositoryConfig is one entry of the persisted default repository set,
// added with `uppm repo add <url>` and listed with `uppm repo list`.
type RepositoryConfig struct {
	URL string `json:"url"`
}

// ConfigFile is the on-disk shape of ~/.uppm/config.json: the current
// target app selection and the default repository set a resolver
// consults when a dependency reference carries no explicit repository
// URL. Adapted from the teacher's auth-token-centric ConfigFile, which
// persisted the same way (atomic temp-file-then-rename, permission
// carry-over) but for a different payload.
type ConfigFile struct {
	Filename string `json:"-"` // Note: for internal use only

	CurrentTargetApp    string             `json:"currentTargetApp,omitempty"`
	DefaultRepositories []RepositoryConfig `json:"defaultRepositories,omitempty"`
}

// New initializes an empty configuration file for the given filename 'fn'
func New(fn string) *ConfigFile {
	return &ConfigFile{
		Filename: fn,
	}
}

// LoadFromReader reads the configuration data given and populates the
// receiver object.
func (configFile *ConfigFile) LoadFromReader(configData io.Reader) error {
	if err := json.NewDecoder(configData).Decode(configFile); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// AddDefaultRepository appends url to the default repository set if it
// isn't already present, returning whether it was added.
func (configFile *ConfigFile) AddDefaultRepository(url string) bool {
	for _, repo := range configFile.DefaultRepositories {
		if repo.URL == url {
			return false
		}
	}
	configFile.DefaultRepositories = append(configFile.DefaultRepositories, RepositoryConfig{URL: url})
	return true
}

// SaveToWriter encodes and writes out the full configuration to the
// given writer.
func (configFile *ConfigFile) SaveToWriter(writer io.Writer) error {
	data, err := json.MarshalIndent(configFile, "", "\t")
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// Save encodes and writes out the configuration, atomically: it writes
// to a temp file in the same directory, carries over the existing
// file's permissions, then renames the temp file into place.
func (configFile *ConfigFile) Save() (retErr error) {
	if configFile.Filename == "" {
		return errors.Errorf("Can't save config with empty filename")
	}

	dir := filepath.Dir(configFile.Filename)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	temp, err := os.CreateTemp(dir, filepath.Base(configFile.Filename))
	if err != nil {
		return err
	}
	defer func() {
		temp.Close()
		if retErr != nil {
			if err := os.Remove(temp.Name()); err != nil {
				logrus.WithError(err).WithField("file", temp.Name()).Debug("Error cleaning up temp file")
			}
		}
	}()

	err = configFile.SaveToWriter(temp)
	if err != nil {
		return err
	}

	if err := temp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp file")
	}

	// Handle situation where the configfile is a symlink
	cfgFile := configFile.Filename
	if f, err := os.Readlink(cfgFile); err == nil {
		cfgFile = f
	}

	// Try copying the current config file (if any) ownership and permissions
	copyFilePermissions(cfgFile, temp.Name())
	return os.Rename(temp.Name(), cfgFile)
}

// GetFilename returns the file name that this config file is based on.
func (configFile *ConfigFile) GetFilename() string {
	return configFile.Filename
}
