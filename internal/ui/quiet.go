package ui

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan Event) error {
	for range events {
		// drain so emitters never observe a stuck channel
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
