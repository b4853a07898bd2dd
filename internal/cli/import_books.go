package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	auditrepo "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// ImportBooksCommand bulk-loads books from a YAML file:
//
//	- title: Dune
//	  author: Frank Herbert
//	  genre: Science Fiction
//	  year: 1965
//	  isbn: "9780441013593"
type ImportBooksCommand struct {
	FilePath     string
	AdminEmail   string
	DatabasePath string
	DryRun       bool
	Verbose      bool

	Config config.Config
	Out    io.Writer
	now    func() time.Time
}

// ImportResult summarises an import run.
type ImportResult struct {
	Total    int
	Imported int
	Failures []string
}

func NewImportBooksCommand(cfg *config.Config) *ImportBooksCommand {
	return &ImportBooksCommand{
		Config: *cfg,
		Out:    os.Stdout,
		now:    time.Now,
	}
}

func (cmd *ImportBooksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-books", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a YAML list of books (required)")
	fs.StringVar(&cmd.AdminEmail, "as", "", "Email of the admin the import is recorded under (required unless -dry-run)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (defaults to DATABASE_PATH)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the file without saving anything")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every imported book")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-books -file <path> -as <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Add books to the catalogue from a YAML file.\n\n")
		fmt.Fprintf(os.Stderr, "Each entry takes title, author, genre, year and optionally isbn and description.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Check a file before importing:\n")
		fmt.Fprintf(os.Stderr, "  %s import-books -file books.yaml -dry-run\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import as an existing admin:\n")
		fmt.Fprintf(os.Stderr, "  %s import-books -file books.yaml -as admin@example.com\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if cmd.AdminEmail == "" && !cmd.DryRun {
		return fmt.Errorf("required flag -as not provided")
	}
	return nil
}

// ParseBookList decodes a YAML sequence of books.
func ParseBookList(r io.Reader) ([]entities.BookFields, error) {
	var list []entities.BookFields
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse book list: %w", err)
	}
	return list, nil
}

func (cmd *ImportBooksCommand) Run(ctx context.Context) error {
	fmt.Fprintln(cmd.Out, "Book Import")
	fmt.Fprintln(cmd.Out, "===========")

	file, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open book list: %w", err)
	}
	defer file.Close()

	list, err := ParseBookList(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Found %d books in %s\n", len(list), cmd.FilePath)
	if len(list) == 0 {
		return nil
	}

	var result ImportResult
	if cmd.DryRun {
		fmt.Fprintln(cmd.Out, "DRY RUN MODE - No changes will be made")
		result = cmd.validate(list)
	} else {
		result, err = cmd.importAll(ctx, list)
		if err != nil {
			return err
		}
	}

	cmd.printSummary(result)
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d of %d books failed", len(result.Failures), result.Total)
	}
	return nil
}

func (cmd *ImportBooksCommand) validate(list []entities.BookFields) ImportResult {
	result := ImportResult{Total: len(list)}
	year := cmd.now().UTC().Year()
	for i, fields := range list {
		fields = library.NormalizeBookFields(fields)
		if err := library.ValidateBookFields(fields, year); err != nil {
			result.Failures = append(result.Failures, entryError(i, fields, err))
			continue
		}
		result.Imported++
	}
	return result
}

func (cmd *ImportBooksCommand) importAll(ctx context.Context, list []entities.BookFields) (ImportResult, error) {
	db, err := openDatabase(cmd.Config.Database, cmd.DatabasePath)
	if err != nil {
		return ImportResult{}, err
	}
	defer db.Close()

	admin, err := users.NewRepository(db.DB).GetByEmail(ctx, auth.NormalizeEmail(cmd.AdminEmail))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return ImportResult{}, fmt.Errorf("no admin with email %s", cmd.AdminEmail)
		}
		return ImportResult{}, fmt.Errorf("failed to look up admin: %w", err)
	}

	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	defer auditor.Wait()

	service := library.NewBookService(books.NewRepository(db.DB), auditor)
	service.SetClock(cmd.now)
	principal := auth.Principal(admin)

	result := ImportResult{Total: len(list)}
	for i, fields := range list {
		book, err := service.Create(ctx, principal, fields)
		if err != nil {
			result.Failures = append(result.Failures, entryError(i, fields, err))
			continue
		}
		result.Imported++
		if cmd.Verbose {
			fmt.Fprintf(cmd.Out, "  [OK] #%d %q by %s (id %d)\n", i+1, book.Title, book.Author, book.ID)
		}
	}
	return result, nil
}

func (cmd *ImportBooksCommand) printSummary(r ImportResult) {
	fmt.Fprintln(cmd.Out, "\n=== Import Summary ===")
	fmt.Fprintf(cmd.Out, "Books imported: %d/%d\n", r.Imported, r.Total)
	if len(r.Failures) > 0 {
		fmt.Fprintf(cmd.Out, "\n%d errors occurred:\n", len(r.Failures))
		for _, msg := range r.Failures {
			fmt.Fprintf(cmd.Out, "  [ERROR] %s\n", msg)
		}
	}
}

func entryError(i int, fields entities.BookFields, err error) string {
	title := fields.Title
	if title == "" {
		title = "(untitled)"
	}
	var ve *library.ValidationError
	if errors.As(err, &ve) {
		return fmt.Sprintf("#%d %q: %s", i+1, title, strings.Join(ve.Messages, "; "))
	}
	return fmt.Sprintf("#%d %q: %v", i+1, title, err)
}
