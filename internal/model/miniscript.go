package model

// PolicyInfo describes a concrete policy and its compilations.
type PolicyInfo struct {
	Policy            string            `json:"policy"`
	Semantic          string            `json:"semantic"`
	Normalized        string            `json:"normalized"`
	IsTrivial         bool              `json:"is_trivial"`
	IsUnsatisfiable   bool              `json:"is_unsatisfiable"`
	Keys              int               `json:"n_keys"`
	MinimumKeys       int               `json:"minimum_n_keys"`
	RelativeTimelocks []uint32          `json:"relative_timelocks,omitempty"`
	AbsoluteTimelocks []uint32          `json:"absolute_timelocks,omitempty"`
	Miniscript        map[string]string `json:"miniscript,omitempty"`
}

// MiniscriptInfo describes a parsed miniscript.
type MiniscriptInfo struct {
	Miniscript                     string   `json:"miniscript"`
	Context                        string   `json:"context"`
	Script                         string   `json:"script"`
	ScriptSize                     int      `json:"script_size"`
	MaxSatisfactionWitnessElements int      `json:"max_satisfaction_witness_elements"`
	MaxSatisfactionSize            int      `json:"max_satisfaction_size"`
	Policy                         string   `json:"policy,omitempty"`
	RequiresSig                    bool     `json:"requires_sig"`
	WithinResourceLimits           bool     `json:"within_resource_limits"`
	HasMixedTimelocks              bool     `json:"has_mixed_timelocks"`
	HasRepeatedKeys                bool     `json:"has_repeated_keys"`
	WitnessTemplate                []string `json:"witness_template"`
}

// CompileInfo is the result of compiling a policy.
type CompileInfo struct {
	Miniscript      string   `json:"miniscript"`
	Context         string   `json:"context"`
	Hex             string   `json:"hex"`
	Asm             string   `json:"asm"`
	Cost            float64  `json:"cost"`
	WitnessTemplate []string `json:"witness_template"`
}

// DescriptorInfo describes an output descriptor.
type DescriptorInfo struct {
	Descriptor            string `json:"descriptor"`
	Checksum              string `json:"checksum"`
	Type                  string `json:"type"`
	Address               string `json:"address,omitempty"`
	ScriptPubKey          string `json:"script_pub_key"`
	RedeemScript          string `json:"redeem_script,omitempty"`
	WitnessScript         string `json:"witness_script,omitempty"`
	MaxSatisfactionWeight int    `json:"max_satisfaction_weight,omitempty"`
	Policy                string `json:"policy,omitempty"`
}
