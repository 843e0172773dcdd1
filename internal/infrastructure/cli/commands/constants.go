package commands

import "github.com/doeshing/dirctx/internal/domain"

// Display defaults
const (
	DefaultHistoryLimit = domain.DefaultHistoryLimit
	DefaultTopArtifacts = domain.DefaultTopArtifacts
	TimestampFormat     = domain.TimestampFormat
	PreviewWidth        = 72
)

// Success messages
const (
	MsgNoHistoryRecorded = "No history recorded yet."
	MsgNoCachedPrefixes  = "No cached prefixes."
	MsgCleared           = "Cleared prompt history, prefix cache and index cache."
)
