// Package config loads and saves the wgdyn server configuration.
//
// The configuration is a YAML file. Missing keys take their default values,
// and a missing file is the same as an empty one.
//
// # Configuration File Location
//
// Unless a path is given explicitly the file is looked up in the
// platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/wgdyn/config.yaml or $HOME/.config/wgdyn/config.yaml
//   - macOS: $HOME/.config/wgdyn/config.yaml
//   - Windows: %LOCALAPPDATA%\wgdyn\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.ListenAddr())
//
// Command-line flags override file values; the caller applies them to the
// returned Config and calls Validate again.
package config
