package recognizer

import "context"

// Fake is a canned Service for tests and headless runs.
type Fake struct {
	Text string
	Err  error

	Calls int
}

func (f *Fake) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}
