// Package config loads the configuration of a framecore process.
//
// A configuration has four sections: runtime (hierarchy depth and link
// limits, reclaimer pacing), logging, metrics and events. Files are layered
// on top of Default, and the decoder is chosen by file extension: .json,
// .yaml/.yml or .toml. Environment variables prefixed with FRAMECORE_
// override file values.
//
// # Basic Usage
//
//	cfg, err := config.Load("framecore.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Layering a site specific file over a base file:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.toml")
//	loader.AddLayer("config/production.json") // overrides base
//	cfg, err := loader.Load()
//
// Durations are written as strings accepted by time.ParseDuration, with an
// additional "d" suffix for days:
//
//	[runtime]
//	cycle_period = "500ms"
//	safety_interval = "5s"
//
// # Environment Overrides
//
//	FRAMECORE_LOG_LEVEL, FRAMECORE_LOG_FORMAT
//	FRAMECORE_MAX_DEPTH, FRAMECORE_SAFETY_INTERVAL
//	FRAMECORE_METRICS_ENABLED, FRAMECORE_METRICS_PORT, FRAMECORE_METRICS_PATH
//	FRAMECORE_EVENTS_ENABLED, FRAMECORE_NATS_URL, FRAMECORE_NATS_TOKEN,
//	FRAMECORE_EVENTS_SUBJECT_PREFIX, FRAMECORE_EVENTS_BUFFER_SIZE
package config
