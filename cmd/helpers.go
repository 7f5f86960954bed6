package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/howeyc/gopass"
	"golang.org/x/term"

	"github.com/nyxvault/secretvault/internal/audit"
	"github.com/nyxvault/secretvault/internal/session"
	"github.com/nyxvault/secretvault/internal/store"
	"github.com/nyxvault/secretvault/internal/vaultengine"
)

var (
	colorSuccess = color.New(color.FgGreen)
	colorDenied  = color.New(color.FgRed)
	colorError   = color.New(color.FgRed, color.Bold)
)

// newEngine wires an Engine over the resolved vault, session, and audit
// artifacts, using the OS keychain carrier instead of the file carrier
// when --keyring was requested.
func newEngine() *vaultengine.Engine {
	codec := store.New(VaultFilePath())
	auditSink := audit.New(AuditFilePath())

	var carrier session.Carrier
	if UseKeyring() {
		carrier = session.NewKeyringCarrier(vaultID())
	} else {
		carrier = session.NewFileCarrier(SessionFilePath())
	}

	return vaultengine.New(codec, carrier, auditSink)
}

func vaultID() string {
	return strings.TrimSuffix(VaultFilePath(), ".db")
}

// requireIdentity returns the --identity flag value or an error, for
// verbs that need a caller identity for the policy gate and audit trail.
func requireIdentity() (string, error) {
	if flagIdentity == "" {
		return "", fmt.Errorf("--identity is required for this command")
	}
	return flagIdentity, nil
}

// readPassword reads a password with no terminal echo, falling back to
// a plain scanned line when stdin is not a terminal (pipes, tests).
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSuffix(line, "\n"), nil
	}

	passwordBytes, err := gopass.GetPasswdMasked()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(passwordBytes), nil
}

func printSuccess(format string, args ...interface{}) {
	colorSuccess.Fprintf(os.Stdout, format+"\n", args...)
}

func printDenied(format string, args ...interface{}) {
	colorDenied.Fprintf(os.Stderr, format+"\n", args...)
}
