package game

import "context"

// Confirmer is provided by the render surface to approve destructive
// actions. Returning false leaves the session untouched.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm approves every prompt.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

func confirm(ctx context.Context, c Confirmer, prompt string) error {
	if c == nil {
		return nil
	}
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}
