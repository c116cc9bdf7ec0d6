package ncclient

// Config controls NETCONF session setup behaviour.
type Config struct {
	// SetupTimeoutSecs bounds how long NewSession waits for the server's
	// hello message.
	SetupTimeoutSecs int
	// DisableChunkedCodec prevents advertising (and honouring) RFC6242
	// chunked framing, forcing legacy end-of-message framing throughout.
	DisableChunkedCodec bool
	// Capabilities overrides the advertised capability set for this
	// connect, letting a CONNECT request supply its own list (spec.md
	// §4.5: "Builds a capability set from the array if provided, else
	// uses library defaults"). Nil means use ncmodel.DefaultCapabilities.
	Capabilities []string
}

// DefaultConfig is merged in (via mergo) under any caller-supplied Config.
var DefaultConfig = &Config{
	SetupTimeoutSecs:    5,
	DisableChunkedCodec: false,
}
