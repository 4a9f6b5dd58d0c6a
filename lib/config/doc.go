// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads capturetrack configuration.
//
// Configuration comes from a single file named by the
// CAPTURETRACK_CONFIG environment variable or the --config flag. Files
// ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas allowed; anything else is parsed as YAML. Values not
// present in the file keep their defaults from [Default].
//
// Path values may reference ${VAR} or ${VAR:-default}; ${HOME} and
// ${CAPTURETRACK_OUTPUT} (the configured output directory) are always
// available.
package config
