package docstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/logging"
	"github.com/standardbeagle/zlsd/internal/uriutil"
)

// companionFile mirrors the `zls.build.json` schema: at minimum
// build_options[] and relative_builtin_path.
type companionFile struct {
	BuildOptions        []string `json:"build_options"`
	RelativeBuiltinPath string   `json:"relative_builtin_path"`
}

// loadBuildAssociatedConfigLocked loads bf's static companion config from
// the `zls.build.json` sibling of its build.zig. Absence is logged at
// debug level and never fatal; any other error is logged at debug level
// with the error attached, also never fatal.
func (s *Store) loadBuildAssociatedConfigLocked(bf *BuildFile) {
	dir, err := uriutil.Dir(bf.URI)
	if err != nil {
		logging.Debugf(logComponent, "build companion lookup for %s: %v", bf.URI, err)
		return
	}
	dirPath, err := uriutil.ToPath(dir)
	if err != nil {
		logging.Debugf(logComponent, "build companion lookup for %s: %v", bf.URI, err)
		return
	}

	path := filepath.Join(dirPath, config.BuildCompanionFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debugf(logComponent, "no build companion at %s", path)
		} else {
			logging.Debugf(logComponent, "reading build companion %s: %v", path, err)
		}
		return
	}

	var cf companionFile
	if err := json.Unmarshal(data, &cf); err != nil {
		logging.Debugf(logComponent, "parsing build companion %s: %v", path, err)
		return
	}

	ac := &BuildAssociatedConfig{
		BuildOptions:        cf.BuildOptions,
		RelativeBuiltinPath: cf.RelativeBuiltinPath,
	}
	bf.SetBuildAssociatedConfig(ac)

	if cf.RelativeBuiltinPath != "" {
		if builtinURI, err := uriutil.Join(bf.URI, cf.RelativeBuiltinPath); err == nil {
			bf.BuiltinURI = builtinURI
		}
	}
}
