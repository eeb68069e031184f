package cache

// Sampling methods understood by the backend chart data endpoint.
const (
	MethodSystematic = "systematic"
	MethodRandom     = "random"
)

// SamplingPolicy is the per-chart-type sampling request sent on fallback.
type SamplingPolicy struct {
	MaxPoints int    `json:"max_points"`
	Method    string `json:"sampling_method"`
	Reason    string `json:"reason"`
}

// DefaultPolicy applies to chart types without a registered policy.
var DefaultPolicy = SamplingPolicy{
	MaxPoints: 4000,
	Method:    MethodSystematic,
	Reason:    "default for unregistered chart types",
}

// samplingPolicies is immutable process-wide configuration, not user state.
var samplingPolicies = map[string]SamplingPolicy{
	"line":          {MaxPoints: 3000, Method: MethodSystematic, Reason: "preserves temporal order"},
	"area":          {MaxPoints: 3000, Method: MethodSystematic, Reason: "preserves temporal order"},
	"multi-line":    {MaxPoints: 3000, Method: MethodSystematic, Reason: "preserves temporal order"},
	"stacked-area":  {MaxPoints: 3000, Method: MethodSystematic, Reason: "preserves temporal order"},
	"scatter":       {MaxPoints: 3000, Method: MethodRandom, Reason: "avoids periodic bias"},
	"3d-scatter":    {MaxPoints: 3000, Method: MethodRandom, Reason: "avoids periodic bias"},
	"5d-scatter":    {MaxPoints: 3000, Method: MethodRandom, Reason: "avoids periodic bias"},
	"heatmap":       {MaxPoints: 3000, Method: MethodRandom, Reason: "avoids periodic bias"},
	"bar":           {MaxPoints: 1000, Method: MethodSystematic, Reason: "bar count readability"},
	"bar-histogram": {MaxPoints: 2000, Method: MethodSystematic, Reason: "bin distribution fidelity"},
	"histogram":     {MaxPoints: 2000, Method: MethodSystematic, Reason: "bin distribution fidelity"},
	"box-plot":      {MaxPoints: 2000, Method: MethodSystematic, Reason: "quartile stability"},
	"3d-surface":    {MaxPoints: 3000, Method: MethodSystematic, Reason: "surface mesh density"},
	"pie":           {MaxPoints: 1000, Method: MethodSystematic, Reason: "slice count readability"},
}

// PolicyFor returns the sampling policy for a chart type, falling back to
// DefaultPolicy for unregistered types.
func PolicyFor(chartType string) SamplingPolicy {
	if policy, ok := samplingPolicies[chartType]; ok {
		return policy
	}
	return DefaultPolicy
}
