package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// datasetNames are tried, in order, when a directory is given instead of a file.
var datasetNames = []string{
	"korea_districts.bin",
	"korea_districts.db",
	"korea_districts.json",
	"korea_districts.yaml",
	"korea_districts.yml",
}

// PathResolver finds the district dataset and config files regardless of
// where the binary is launched from.
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a resolver rooted at the running executable.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      platformConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, pr.configDir)
	return pr, nil
}

func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "placeserve")
		}
		return filepath.Join(homeDir, ".config", "placeserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "placeserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "placeserve")
	default:
		return filepath.Join(homeDir, ".config", "placeserve")
	}
}

// GetDataPath resolves the dataset file for a user supplied path.
// Relative paths are tried against the executable dir, then the working dir,
// then the config dir. A directory resolves to the first known dataset inside it.
func (pr *PathResolver) GetDataPath(userPath string) (string, error) {
	candidates := pr.dataCandidates(userPath)
	for _, path := range candidates {
		if resolved, ok := resolveDataset(path); ok {
			log.Debugf("Found dataset: %s", resolved)
			return resolved, nil
		}
		log.Debugf("Dataset candidate not usable: %s", path)
	}
	return "", fmt.Errorf("no dataset found for %q (tried %s)", userPath, strings.Join(candidates, ", "))
}

func (pr *PathResolver) dataCandidates(userPath string) []string {
	if filepath.IsAbs(userPath) {
		return []string{userPath}
	}
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, userPath))
	}
	candidates = append(candidates,
		filepath.Join(pr.executableDir, userPath),
		filepath.Join(filepath.Dir(pr.executableDir), userPath),
		filepath.Join(pr.configDir, userPath),
		filepath.Join(pr.configDir, "data"),
	)
	return candidates
}

func resolveDataset(path string) (string, bool) {
	stat, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if !stat.IsDir() {
		return path, true
	}
	for _, name := range datasetNames {
		if candidate := filepath.Join(path, name); FileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// GetConfigPath returns a writable location for filename, falling back to
// ~/.placeserve and then the temp dir.
func (pr *PathResolver) GetConfigPath(filename string) string {
	dirs := []string{
		pr.configDir,
		filepath.Join(pr.homeDir, ".placeserve"),
		filepath.Join(os.TempDir(), "placeserve"),
	}
	for i, dir := range dirs {
		if EnsureDir(dir) != nil || !testWriteAccess(dir) {
			continue
		}
		path := filepath.Join(dir, filename)
		if i > 0 {
			log.Warnf("Using fallback config location: %s", path)
		}
		return path
	}
	path := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", path)
	return path
}

// GetConfigDir returns the platform config directory.
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetRuntimeInfo is printed by -version for bug reports.
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	wd, _ := os.Getwd()
	return map[string]string{
		"executable": pr.executablePath,
		"configDir":  pr.configDir,
		"workingDir": wd,
		"goos":       runtime.GOOS,
		"goarch":     runtime.GOARCH,
		"goVersion":  runtime.Version(),
	}
}
