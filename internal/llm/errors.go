package llm

import "errors"

var (
	// ErrRateLimited marks a rate-limit class failure (HTTP 429 / RESOURCE_EXHAUSTED).
	ErrRateLimited = errors.New("llm rate limited")

	// ErrGenerationFailed is returned once a generation call has definitively
	// failed, either non-retryable or after all attempts. Callers must fall back.
	ErrGenerationFailed = errors.New("llm generation failed")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")

	// ErrInvalidOutput indicates the LLM response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrEmptyResponse indicates the provider answered without any content.
	ErrEmptyResponse = errors.New("llm returned no content")
)
