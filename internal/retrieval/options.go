package retrieval

// Retrieval defaults.
const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.5
)

type options struct {
	topK            int
	sourceType      string
	category        string
	minSimilarity   float64
	includeMetadata bool
}

func defaultOptions() options {
	return options{
		topK:            DefaultTopK,
		minSimilarity:   DefaultMinSimilarity,
		includeMetadata: true,
	}
}

// Option configures a single RetrieveContext call.
type Option func(*options)

// WithTopK sets how many contexts to return. Non-positive values keep the
// default.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithSourceType restricts candidates to one source type.
func WithSourceType(sourceType string) Option {
	return func(o *options) {
		o.sourceType = sourceType
	}
}

// WithCategory restricts candidates to one category.
func WithCategory(category string) Option {
	return func(o *options) {
		o.category = category
	}
}

// WithMinSimilarity sets the similarity floor below which candidates are
// dropped. Values outside [0, 1] keep the default.
func WithMinSimilarity(min float64) Option {
	return func(o *options) {
		if min >= 0 && min <= 1 {
			o.minSimilarity = min
		}
	}
}

// WithoutMetadata omits chunk metadata from the returned contexts and the
// formatted output.
func WithoutMetadata() Option {
	return func(o *options) {
		o.includeMetadata = false
	}
}
