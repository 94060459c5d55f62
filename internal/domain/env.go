package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Target selects the build flavor the compiled data is intended for.
type Target string

const (
	TargetGame   Target = "game"
	TargetServer Target = "server"
	TargetEditor Target = "editor"
)

// Platform selects the runtime platform of the compiled data.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformMac     Platform = "mac"
)

// Locale is a language/region identifier ("en", "pl", ...).
type Locale string

// CompilationEnv is the compilation context. Different environments yield
// different compilation results and therefore participate in cache keys.
type CompilationEnv struct {
	Target   Target
	Platform Platform
	Locale   Locale
}

func (e CompilationEnv) Validate() error {
	switch e.Target {
	case TargetGame, TargetServer, TargetEditor:
	default:
		return fmt.Errorf("unknown target: %q", e.Target)
	}
	switch e.Platform {
	case PlatformWindows, PlatformLinux, PlatformMac:
	default:
		return fmt.Errorf("unknown platform: %q", e.Platform)
	}
	if strings.TrimSpace(string(e.Locale)) == "" {
		return errors.New("locale is required")
	}
	return nil
}

// Canonical returns the stable textual encoding of the environment used in
// fingerprint computation. Changing this encoding is a cache-format break.
func (e CompilationEnv) Canonical() string {
	return fmt.Sprintf("%s|%s|%s", e.Target, e.Platform, e.Locale)
}
