// Package module holds the bootstrap registry and port lookup for modkit modules
package module

import "github.com/linuxautomates/gitsei-sub026/internal/modkit"

// Module is the modkit module contract, aliased so callers need one import
type Module = modkit.Module
