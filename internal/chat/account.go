package chat

import "context"

type accountKey struct{}

// WithAccount binds the calendar account of the person chatting to ctx.
// Tools use it instead of any account the model might put in its arguments.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the account bound by WithAccount, or "".
func AccountFromContext(ctx context.Context) string {
	account, _ := ctx.Value(accountKey{}).(string)
	return account
}
