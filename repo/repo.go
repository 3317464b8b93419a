package repo

import (
	"bytes"
	"os"
	"path"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	rootPathEnvVar = "PROPOSER_PATH"

	envPrefix = "PROPOSER"

	cfgFileName = "proposer.toml"

	defaultRepoRoot = "~/.proposer"

	LogsDirName = "logs"

	StorageDirName = "leveldb"

	DefaultRegistryAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

type Repo struct {
	Config *Config
}

// Initialized reports whether root already holds a proposer config file.
func Initialized(root string) bool {
	_, err := os.Lstat(ConfigPath(root))
	return err == nil || !os.IsNotExist(err)
}

// ConfigPath returns the config file path under the repo root.
func ConfigPath(repoRoot string) string {
	return path.Join(repoRoot, cfgFileName)
}

// Init creates root and writes the default config, with env overrides
// applied, into it.
func Init(root string) (*Repo, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "create repo root %s", root)
	}
	r := &Repo{Config: DefaultConfig(root)}
	if err := r.Flush(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads the repo at repoRoot, or the env/default root when empty, and
// initializes it first when no config exists yet.
func Load(repoRoot string) (*Repo, error) {
	root, err := LoadRepoRootFromEnv(repoRoot)
	if err != nil {
		return nil, err
	}

	var r *Repo
	if !Initialized(root) {
		if r, err = Init(root); err != nil {
			return nil, errors.Wrap(err, "failed to build default config")
		}
	} else {
		if err := checkWritable(root); err != nil {
			return nil, err
		}
		r = &Repo{Config: DefaultConfig(root)}
		if err := readConfigFromFile(ConfigPath(root), r.Config); err != nil {
			return nil, err
		}
	}

	if err := r.Config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return r, nil
}

func (r *Repo) Flush() error {
	if err := writeConfigWithEnv(ConfigPath(r.Config.RepoRoot), r.Config); err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

func writeConfigWithEnv(cfgPath string, config any) error {
	if err := writeConfig(cfgPath, config); err != nil {
		return err
	}
	// write back environment variables first
	if err := readConfigFromFile(cfgPath, config); err != nil {
		return errors.Wrapf(err, "failed to read cfg from environment")
	}
	if err := writeConfig(cfgPath, config); err != nil {
		return err
	}
	return nil
}

func writeConfig(cfgPath string, config any) error {
	raw, err := MarshalConfig(config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfgPath, []byte(raw), 0644); err != nil {
		return errors.Wrapf(err, "write config %s", cfgPath)
	}

	return nil
}

func MarshalConfig(config any) (string, error) {
	buf := bytes.NewBuffer([]byte{})
	e := toml.NewEncoder(buf)
	e.SetIndentTables(true)
	e.SetArraysMultiline(true)
	err := e.Encode(config)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func LoadRepoRootFromEnv(repoRoot string) (string, error) {
	if repoRoot != "" {
		return repoRoot, nil
	}
	repoRoot = os.Getenv(rootPathEnvVar)
	var err error
	if len(repoRoot) == 0 {
		repoRoot, err = homedir.Expand(defaultRepoRoot)
	}
	return repoRoot, err
}

func readConfigFromFile(cfgFilePath string, config any) error {
	vp := viper.New()
	vp.SetConfigFile(cfgFilePath)
	vp.SetConfigType("toml")
	return readConfig(vp, config)
}

func readConfig(vp *viper.Viper, config any) error {
	vp.AutomaticEnv()
	vp.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	vp.SetEnvKeyReplacer(replacer)

	err := vp.ReadInConfig()
	if err != nil {
		return err
	}

	if err := vp.Unmarshal(config); err != nil {
		return errors.Wrap(err, "unmarshal config")
	}

	return nil
}

// checkWritable makes sure the daemon can create its storage and logs under dir.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		if os.IsPermission(err) {
			return errors.Errorf("%s is not writable by the current user", dir)
		}
		return errors.Wrapf(err, "check repo root %s", dir)
	}
	f.Close()
	return os.Remove(f.Name())
}
