// Package pushover is a client for the Pushover push notification API.
//
// Build a request with NewMessage, NewValidate or NewReceipt, then pass it to
// a Client created with NewClient:
//
//	client, err := pushover.NewClient(appToken)
//	if err != nil {
//		return err
//	}
//	message, err := pushover.NewMessage(userKey, "Backup finished")
//	if err != nil {
//		return err
//	}
//	receipt, err := client.Send(ctx, message)
//
// Setters reject invalid input with an error wrapping ErrInvalidArgument and
// leave the request unchanged. API failures are returned as *APIError, network
// failures as *TransportError. The client never retries; IsTransient tells a
// caller whether trying again later could help.
package pushover
