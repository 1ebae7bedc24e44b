package core

type categoryFields struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Category groups channels.
type Category struct {
	entity[categoryFields]
}

func (c *Category) load(raw map[string]any, replace bool) error {
	_, err := c.apply(raw, replace, nil)
	return err
}

func (c *Category) ID() int64     { return c.view().ID }
func (c *Category) Name() string  { return c.view().Name }
func (c *Category) Position() int { return c.view().Position }

// CategoryStore caches categories.
type CategoryStore struct {
	eventStore[*Category]
}
