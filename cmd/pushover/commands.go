package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kursadbilgin/pushover/pkg/pushover"
)

const usage = `usage: pushover <command> [flags]

commands:
  send      push a message to a user or group
  validate  check a user or group key, optionally with a device
  devices   list the devices registered for a user
  receipt   poll the status of an emergency message receipt
  sounds    list the notification sounds`

var errUsage = errors.New(usage)

func run(ctx context.Context, client *pushover.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "send":
		message, err := parseSendArgs(rest)
		if err != nil {
			return err
		}
		receipt, err := client.Send(ctx, message)
		if err != nil {
			return err
		}
		if receipt != "" {
			fmt.Fprintf(out, "sent, receipt %s\n", receipt)
			return nil
		}
		fmt.Fprintln(out, "sent")
		return nil

	case "validate":
		request, err := parseValidateArgs(rest)
		if err != nil {
			return err
		}
		ok, err := client.Validate(ctx, request)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintln(out, "valid")
		} else {
			fmt.Fprintln(out, "invalid")
		}
		return nil

	case "devices":
		user, err := parseUserArg("devices", rest)
		if err != nil {
			return err
		}
		devices, err := client.UserDevices(ctx, user)
		if err != nil {
			return err
		}
		for _, device := range devices {
			fmt.Fprintln(out, device)
		}
		return nil

	case "receipt":
		request, err := parseReceiptArgs(rest)
		if err != nil {
			return err
		}
		response, err := client.PollReceipt(ctx, request)
		if err != nil {
			return err
		}
		printReceipt(out, response)
		return nil

	case "sounds":
		for _, sound := range pushover.Sounds() {
			if sound == pushover.SoundUserDefault {
				continue
			}
			fmt.Fprintln(out, sound)
		}
		return nil
	}

	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

func parseSendArgs(args []string) (*pushover.Message, error) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	user := fs.String("user", "", "user or group key (required)")
	body := fs.String("message", "", "message body (required)")
	title := fs.String("title", "", "message title")
	device := fs.String("device", "", "device name, all devices when empty")
	link := fs.String("url", "", "supplementary URL")
	linkTitle := fs.String("url-title", "", "title for the supplementary URL")
	priority := fs.String("priority", "", "invisible, silent, normal, high, emergency or -2..2")
	sound := fs.String("sound", "", "notification sound, see the sounds command")
	timestamp := fs.Int64("timestamp", 0, "unix time shown as the message time")
	expire := fs.String("expire", "", "emergency: seconds to keep retrying")
	retry := fs.String("retry", "", "emergency: seconds between retries")
	callback := fs.String("callback", "", "emergency: URL called on acknowledgement")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	message, err := pushover.NewMessage(*user, *body)
	if err != nil {
		return nil, err
	}

	var errs []error
	if *title != "" {
		errs = append(errs, message.SetTitle(*title))
	}
	if *device != "" {
		errs = append(errs, message.SetDevice(*device))
	}
	if *link != "" {
		errs = append(errs, message.SetURL(*link))
	}
	if *linkTitle != "" {
		errs = append(errs, message.SetURLTitle(*linkTitle))
	}
	if *priority != "" {
		p, err := pushover.ParsePriority(*priority)
		errs = append(errs, err)
		if err == nil {
			errs = append(errs, message.SetPriority(p))
		}
	}
	if *sound != "" {
		errs = append(errs, message.SetSound(pushover.Sound(*sound)))
	}
	if *timestamp != 0 {
		message.SetTimestamp(*timestamp)
	}
	if *expire != "" {
		seconds, err := pushover.ParseSeconds(*expire)
		errs = append(errs, err)
		if err == nil {
			errs = append(errs, message.SetExpire(seconds))
		}
	}
	if *retry != "" {
		seconds, err := pushover.ParseSeconds(*retry)
		errs = append(errs, err)
		if err == nil {
			errs = append(errs, message.SetRetry(seconds))
		}
	}
	if *callback != "" {
		errs = append(errs, message.SetCallbackURL(*callback))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return message, nil
}

func parseValidateArgs(args []string) (*pushover.Validate, error) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	user := fs.String("user", "", "user or group key (required)")
	device := fs.String("device", "", "device name to check")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	request, err := pushover.NewValidate(*user)
	if err != nil {
		return nil, err
	}
	if *device != "" {
		if err := request.SetDevice(*device); err != nil {
			return nil, err
		}
	}
	return request, nil
}

func parseUserArg(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	user := fs.String("user", "", "user key (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if !pushover.IsValidToken(*user) {
		return "", fmt.Errorf("%w: -user must be a 30-character alphanumeric key", pushover.ErrInvalidArgument)
	}
	return *user, nil
}

func parseReceiptArgs(args []string) (*pushover.Receipt, error) {
	fs := flag.NewFlagSet("receipt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	receipt := fs.String("receipt", "", "receipt returned for an emergency message (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return pushover.NewReceipt(*receipt)
}

func printReceipt(out io.Writer, r *pushover.Response) {
	var b strings.Builder

	fmt.Fprintf(&b, "acknowledged: %s\n", yesNo(r.Acknowledged))
	if r.AcknowledgedBy != nil {
		fmt.Fprintf(&b, "acknowledged by: %s\n", *r.AcknowledgedBy)
	}
	writeTime(&b, "acknowledged at", r.AcknowledgedAt)
	writeTime(&b, "last delivered at", r.LastDeliveredAt)
	fmt.Fprintf(&b, "expired: %s\n", yesNo(r.Expired))
	writeTime(&b, "expires at", r.ExpiresAt)
	fmt.Fprintf(&b, "called back: %s\n", yesNo(r.CalledBack))
	writeTime(&b, "called back at", r.CalledBackAt)

	_, _ = io.WriteString(out, b.String())
}

func writeTime(b *strings.Builder, label string, t *time.Time) {
	if t == nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, t.Format(time.RFC3339))
}

func yesNo(v *bool) string {
	switch {
	case v == nil:
		return "unknown"
	case *v:
		return "yes"
	}
	return "no"
}
