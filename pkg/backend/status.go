package backend

import "fmt"

// Retrosynthesis exit codes.
const (
	CodeOK              = 0
	CodeTimeout         = 10
	CodeMemory          = 20
	CodeSourceInSink    = 30
	CodeSourceNotInSink = 31
	CodeNoResult        = 40
	CodeOSError         = 50
	CodeOutOfRAM        = 60
)

var statusMessages = map[int]string{
	CodeOK:              "OK",
	CodeTimeout:         "Timeout error",
	CodeMemory:          "Memory error",
	CodeSourceInSink:    "Source in sink",
	CodeSourceNotInSink: "Source in sink not found",
	CodeNoResult:        "No result produced",
	CodeOSError:         "Operating system error",
	CodeOutOfRAM:        "Out of RAM",
}

// StatusMessage describes a retrosynthesis exit code.
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown error (%d)", code)
}
