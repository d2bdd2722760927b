// Package config loads CommitView settings.
//
// Settings come from a YAML file, then COMMITVIEW_* environment variables,
// then command line flags set by the binaries:
//
//	cfg, err := config.Load("commitview.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Environment variables use the upper-cased YAML path joined with
// underscores, for example COMMITVIEW_ENGINE_KIND or COMMITVIEW_AUTH_SECRET.
package config
