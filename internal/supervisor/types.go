package supervisor

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// State is the lifecycle state of the STT runtime.
type State string

const (
	StateIdle        State = "idle"
	StateDownloading State = "downloading"
	StateStarting    State = "starting"
	StateRunning     State = "running"
	StateError       State = "error"
)

// States lists every state, in lifecycle order.
var States = []State{StateIdle, StateDownloading, StateStarting, StateRunning, StateError}

// Status is an immutable snapshot. Each transition replaces it whole.
type Status struct {
	State    State    `json:"state"`
	Message  string   `json:"message,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

// Snapshot is Status plus the live process facts.
type Snapshot struct {
	Status           Status
	Host             string
	Port             int
	PID              int
	RuntimeVersion   string
	TranscriptionURL string
	LogPath          string
}

// Placeholder names accepted in an argument template.
const (
	PHHost        = "host"
	PHPort        = "port"
	PHModel       = "model"
	PHDevice      = "device"
	PHComputeType = "computeType"
	PHModelDir    = "modelDir"
)

var knownPlaceholders = map[string]bool{
	PHHost: true, PHPort: true, PHModel: true,
	PHDevice: true, PHComputeType: true, PHModelDir: true,
}

// DefaultArgs is the text form of the default launch template.
var DefaultArgs = []string{
	"--host", "{host}",
	"--port", "{port}",
	"--model", "{model}",
	"--device", "{device}",
	"--compute-type", "{computeType}",
	"--cache-dir", "{modelDir}",
}

var embeddedPlaceholder = regexp.MustCompile(`\{([A-Za-z]+)\}`)

// ArgToken is either a literal argument or a named placeholder.
type ArgToken struct {
	Literal     string
	Placeholder string
}

// ArgTemplate is an ordered list of launch argument tokens.
type ArgTemplate []ArgToken

// ParseArgTemplate builds a template from its text form. A placeholder must
// be a whole argument ("{port}", not "--port={port}") and must be known.
func ParseArgTemplate(args []string) (ArgTemplate, error) {
	t := make(ArgTemplate, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "{") && strings.HasSuffix(a, "}") && len(a) > 2 {
			name := a[1 : len(a)-1]
			if !knownPlaceholders[name] {
				return nil, fmt.Errorf("unknown placeholder %q", a)
			}
			t = append(t, ArgToken{Placeholder: name})
			continue
		}
		for _, m := range embeddedPlaceholder.FindAllStringSubmatch(a, -1) {
			if knownPlaceholders[m[1]] {
				return nil, fmt.Errorf("placeholder must be a whole argument: %q", a)
			}
		}
		t = append(t, ArgToken{Literal: a})
	}
	return t, nil
}

// MustParseArgTemplate is ParseArgTemplate for compile-time templates.
func MustParseArgTemplate(args []string) ArgTemplate {
	t, err := ParseArgTemplate(args)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve substitutes placeholders from values.
func (t ArgTemplate) Resolve(values map[string]string) []string {
	out := make([]string, len(t))
	for i, tok := range t {
		if tok.Placeholder != "" {
			out[i] = values[tok.Placeholder]
			continue
		}
		out[i] = tok.Literal
	}
	return out
}

// Strings returns the text form.
func (t ArgTemplate) Strings() []string {
	out := make([]string, len(t))
	for i, tok := range t {
		if tok.Placeholder != "" {
			out[i] = "{" + tok.Placeholder + "}"
			continue
		}
		out[i] = tok.Literal
	}
	return out
}

// RuntimeConfig describes how to obtain and launch the STT runtime.
type RuntimeConfig struct {
	Host        string
	Port        int
	Model       string
	Device      string
	ComputeType string
	Version     string
	URL         string
	Executable  string
	Args        ArgTemplate
}

// Runtime defaults.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8000
	DefaultModel       = "small"
	DefaultDevice      = "cuda"
	DefaultComputeType = "int8_float16"
	DefaultVersion     = "stt-runtime-v0.1.1"
)

// windowsReleaseURL is the published win-x64 runtime archive for DefaultVersion.
const windowsReleaseURL = "https://github.com/wandering-wampa/Voice-of-the-Dungeon/releases/download/" +
	DefaultVersion + "/vod-stt-win-x64.zip"

// DefaultExecutable is the runtime binary name for the current OS.
func DefaultExecutable() string {
	if runtime.GOOS == "windows" {
		return "vod-stt-server.exe"
	}
	return "stt-server"
}

// DefaultURL is the runtime archive for the current OS. Only a Windows build
// is published; elsewhere the location must be configured.
func DefaultURL() string {
	if runtime.GOOS == "windows" {
		return windowsReleaseURL
	}
	return ""
}

// DefaultRuntimeConfig returns the built-in runtime settings.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		URL:         DefaultURL(),
		Host:        DefaultHost,
		Port:        DefaultPort,
		Model:       DefaultModel,
		Device:      DefaultDevice,
		ComputeType: DefaultComputeType,
		Version:     DefaultVersion,
		Executable:  DefaultExecutable(),
		Args:        MustParseArgTemplate(DefaultArgs),
	}
}

func (rc RuntimeConfig) withDefaults() RuntimeConfig {
	d := DefaultRuntimeConfig()
	if rc.Host == "" {
		rc.Host = d.Host
	}
	if rc.Port <= 0 {
		rc.Port = d.Port
	}
	if rc.Model == "" {
		rc.Model = d.Model
	}
	if rc.Device == "" {
		rc.Device = d.Device
	}
	if rc.ComputeType == "" {
		rc.ComputeType = d.ComputeType
	}
	if rc.Version == "" {
		rc.Version = d.Version
	}
	if rc.Executable == "" {
		rc.Executable = d.Executable
	}
	if rc.Args == nil {
		rc.Args = d.Args
	}
	return rc
}
