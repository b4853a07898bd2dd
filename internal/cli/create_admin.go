package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/library"
)

// CreateAdminCommand creates an admin account from the command line. It works
// even when self-registration is disabled.
type CreateAdminCommand struct {
	Email        string
	Name         string
	Generate     bool
	DatabasePath string

	Config config.Config
	Out    io.Writer
	// ReadPassword prompts for the password. Defaults to a terminal prompt.
	ReadPassword func(prompt string) (string, error)
}

func NewCreateAdminCommand(cfg *config.Config) *CreateAdminCommand {
	return &CreateAdminCommand{
		Config:       *cfg,
		Out:          os.Stdout,
		ReadPassword: promptPassword,
	}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Email, "email", "", "Email address of the new admin (required)")
	fs.StringVar(&cmd.Name, "name", "", "Display name of the new admin (required)")
	fs.BoolVar(&cmd.Generate, "generate", false, "Generate a random password and print it")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (defaults to DATABASE_PATH)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email <email> -name <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-admin -email admin@example.com -name \"Head Librarian\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-admin -email admin@example.com -name Admin -generate\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Name == "" {
		return fmt.Errorf("required flag -name not provided")
	}
	return nil
}

func (cmd *CreateAdminCommand) Run(ctx context.Context) error {
	password, err := cmd.password()
	if err != nil {
		return err
	}

	db, err := openDatabase(cmd.Config.Database, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(users.NewRepository(db.DB), cmd.Config.Auth)
	user, err := service.Register(ctx, auth.RegisterInput{
		Email:    cmd.Email,
		Password: password,
		Name:     cmd.Name,
	})
	if err != nil {
		var ve *library.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid admin: %s", strings.Join(ve.Messages, "; "))
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created admin %s (id %d)\n", user.Email, user.ID)
	if cmd.Generate {
		fmt.Fprintf(cmd.Out, "Generated password: %s\n", password)
		fmt.Fprintln(cmd.Out, "Store it now, it will not be shown again.")
	}
	return nil
}

func (cmd *CreateAdminCommand) password() (string, error) {
	if cmd.Generate {
		return auth.GenerateSecurePassword(auth.DefaultGeneratedPasswordLength)
	}

	password, err := cmd.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := cmd.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// promptPassword reads a password without echo when stdin is a terminal and
// falls back to a plain line read for piped input.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}

	line, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var stdinReader = bufio.NewReader(os.Stdin)
