// Package crypt wraps gpg symmetric encryption for backup artifacts and
// manages the backup passphrase lifecycle.
package crypt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

// GPG encrypts and decrypts individual backup artifacts by shelling out
// to gpg with AES-256 symmetric encryption. The passphrase always travels
// over stdin (--passphrase-fd 0), never on the command line.
type GPG struct {
	runner stackbak.CommandRunner
}

func NewGPG(runner stackbak.CommandRunner) *GPG {
	return &GPG{runner: runner}
}

// Encrypt produces path+".gpg" and deletes the plaintext original, but
// only after gpg has exited successfully. On failure the plaintext is
// preserved and no encrypted artifact is left behind.
func (g *GPG) Encrypt(ctx context.Context, path string, passphrase *Passphrase) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %v", stackbak.ErrEncryptionFailed, err)
	}

	encryptedPath := path + stackbak.EncryptedSuffix
	err := g.run(ctx, passphrase, []string{
		"--symmetric",
		"--cipher-algo", "AES256",
		"--batch",
		"--yes",
		"--pinentry-mode", "loopback",
		"--passphrase-fd", "0",
		"--output", encryptedPath,
		path,
	})
	if err != nil {
		_ = os.Remove(encryptedPath)
		return "", fmt.Errorf("%w: %v", stackbak.ErrEncryptionFailed, err)
	}
	if _, err := os.Stat(encryptedPath); err != nil {
		return "", fmt.Errorf("%w: gpg exited cleanly but wrote no output: %v", stackbak.ErrEncryptionFailed, err)
	}

	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("%w: removing plaintext: %v", stackbak.ErrEncryptionFailed, err)
	}
	return encryptedPath, nil
}

// Decrypt writes the plaintext for encryptedPath to outputPath. An empty
// outputPath strips the ".gpg" suffix. gpg writes into a temporary file
// that is renamed only on success, so a passphrase mismatch or corrupted
// ciphertext leaves no partial output.
func (g *GPG) Decrypt(ctx context.Context, encryptedPath string, outputPath string, passphrase *Passphrase) error {
	if _, err := os.Stat(encryptedPath); err != nil {
		return fmt.Errorf("%w: %v", stackbak.ErrDecryptionFailed, err)
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(encryptedPath, stackbak.EncryptedSuffix)
	}

	tempPath := outputPath + ".partial"
	err := g.run(ctx, passphrase, []string{
		"--decrypt",
		"--batch",
		"--yes",
		"--pinentry-mode", "loopback",
		"--passphrase-fd", "0",
		"--output", tempPath,
		encryptedPath,
	})
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %v", stackbak.ErrDecryptionFailed, err)
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %v", stackbak.ErrDecryptionFailed, err)
	}
	return nil
}

func (g *GPG) run(ctx context.Context, passphrase *Passphrase, args []string) error {
	buf, err := passphrase.open()
	if err != nil {
		return err
	}
	defer buf.Destroy()

	stdin := io.MultiReader(bytes.NewReader(buf.Bytes()), strings.NewReader("\n"))
	_, stderr, err := g.runner.Run(ctx, stackbak.Command{
		Name:  "gpg",
		Args:  args,
		Stdin: stdin,
	})
	if err != nil {
		detail := strings.TrimSpace(string(stderr))
		if detail == "" {
			return err
		}
		return fmt.Errorf("%v: %s", err, firstLine(detail))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
