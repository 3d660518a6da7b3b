package selection

import "errors"

// Model-internal failures that trigger the fallback chain. They never
// cross the pipeline boundary.
var (
	errNoFeatures    = errors.New("no features extracted")
	errAllZeroScores = errors.New("no candidate scored above zero")
	errNoCandidates  = errors.New("no candidates")
)
