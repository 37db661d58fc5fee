package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// KeygenOptions controls secret generation.
type KeygenOptions struct {
	Bytes int
	KeyID string
}

func newKeygenCommand() *cobra.Command {
	opts := KeygenOptions{Bytes: 32, KeyID: "v1"}
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print fresh event HMAC and JWT secrets as environment assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Keygen(opts, cmd.OutOrStdout(), nil)
		},
	}
	cmd.Flags().IntVar(&opts.Bytes, "bytes", opts.Bytes, "random bytes per secret")
	cmd.Flags().StringVar(&opts.KeyID, "key-id", opts.KeyID, "id of the generated event key")
	return cmd
}

// Keygen writes env assignments for a new event key and JWT secret to out.
// A nil reader uses crypto/rand.
func Keygen(opts KeygenOptions, out io.Writer, reader io.Reader) error {
	if opts.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}
	secret := func() (string, error) {
		buf := make([]byte, opts.Bytes)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return "", fmt.Errorf("generate random bytes: %w", err)
		}
		return hex.EncodeToString(buf), nil
	}
	eventKey, err := secret()
	if err != nil {
		return err
	}
	jwtSecret, err := secret()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "LEDGER_EVENT_HMAC_KEYS=%s=%s\nLEDGER_EVENT_HMAC_KEY_ID=%s\nLEDGER_AUTH_JWT_SECRET=%s\n",
		opts.KeyID, eventKey, opts.KeyID, jwtSecret)
	return err
}
