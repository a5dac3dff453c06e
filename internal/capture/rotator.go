package capture

import "errors"

// Rotator cycles through the configured speech-recognition languages.
// The zero value is not usable; construct with [NewRotator].
//
// Rotator is not safe for concurrent use; callers serialise access (each
// session owns one rotator).
type Rotator struct {
	languages []string
	index     int
}

// NewRotator creates a Rotator over the given language codes. The first entry
// is the initial language. Returns an error when languages is empty.
func NewRotator(languages []string) (*Rotator, error) {
	if len(languages) == 0 {
		return nil, errors.New("capture: rotator needs at least one language")
	}
	langs := make([]string, len(languages))
	copy(langs, languages)
	return &Rotator{languages: langs}, nil
}

// Current returns the active language code.
func (r *Rotator) Current() string {
	return r.languages[r.index]
}

// Next advances to the next language in the cycle, wrapping around at the end,
// and returns the new active language.
func (r *Rotator) Next() string {
	r.index = (r.index + 1) % len(r.languages)
	return r.languages[r.index]
}

// Languages returns a copy of the full cycle.
func (r *Rotator) Languages() []string {
	langs := make([]string, len(r.languages))
	copy(langs, r.languages)
	return langs
}
