package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/chatbridge/internal/auth"
)

// prompter reads form fields from the command's stdin. One bufio.Reader is
// shared by every field so piped input is not lost between reads.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{
		in:     in,
		reader: bufio.NewReader(in),
		out:    cmd.ErrOrStderr(),
	}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, keyStyle.Render(label))
	text, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// secret reads without echo when stdin is a terminal
func (p *prompter) secret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}

	fmt.Fprint(p.out, keyStyle.Render(label))
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func authFailure(cmd *cobra.Command, err error) error {
	msg := auth.FriendlyMessage(err)
	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("✗ "+msg))
	return errors.New(msg)
}

// NewLoginCmd creates the login command
func NewLoginCmd(deps *Dependencies) *cobra.Command {
	var email string
	var resend bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password. The email must be verified first;
use --resend to receive another verification email.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)

			var err error
			if email == "" {
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.secret("Password: ")
			if err != nil {
				return err
			}

			authn, err := deps.authenticator()
			if err != nil {
				return err
			}
			form := auth.SignInForm{Email: email, Password: password}
			ctx := cmd.Context()
			errOut := cmd.ErrOrStderr()

			if resend {
				msg, err := authn.ResendVerification(ctx, form)
				if err != nil {
					return authFailure(cmd, err)
				}
				printSuccess(errOut, "%s", msg)
				return nil
			}

			spin := newSpinner(errOut, "Signing in")
			spin.start()
			user, err := authn.SignIn(ctx, form)
			if err != nil {
				spin.stopWithError()
				return authFailure(cmd, err)
			}
			spin.stopWithSuccess(auth.MsgLoginSuccessful)

			name := user.Email
			if user.DisplayName != "" {
				name = fmt.Sprintf("%s <%s>", user.DisplayName, user.Email)
			}
			printSuccess(errOut, "Signed in as %s", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&resend, "resend", false, "Resend the verification email instead of signing in")
	return cmd
}

// NewSignupCmd creates the signup command
func NewSignupCmd(deps *Dependencies) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account. A verification email is sent; verify it before
running 'chatbridge login'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			errOut := cmd.ErrOrStderr()

			var err error
			if name == "" {
				if name, err = p.line("Name: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.secret("Password: ")
			if err != nil {
				return err
			}
			if password != "" {
				strength := auth.StrengthLabel(auth.PasswordStrength(password))
				fmt.Fprintln(errOut, dimStyle.Render("  Password strength: "+strength))
			}
			confirm, err := p.secret("Confirm password: ")
			if err != nil {
				return err
			}

			authn, err := deps.authenticator()
			if err != nil {
				return err
			}

			msg, err := authn.SignUp(cmd.Context(), auth.SignUpForm{
				Name:            name,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return authFailure(cmd, err)
			}
			printSuccess(errOut, "%s", msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, err := deps.gate()
			if err != nil {
				return err
			}
			if err := gate.Logout(); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			printSuccess(cmd.ErrOrStderr(), "Signed out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, err := deps.gate()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !gate.SignedIn() {
				fmt.Fprintln(out, "Not signed in. Run 'chatbridge login'.")
				return nil
			}

			uid, email, displayName := gate.Identity()
			fmt.Fprintf(out, "%s %s\n", keyStyle.Render("Email:"), email)
			if displayName != "" {
				fmt.Fprintf(out, "%s %s\n", keyStyle.Render("Name: "), displayName)
			}
			fmt.Fprintf(out, "%s %s\n", keyStyle.Render("UID:  "), uid)
			return nil
		},
	}
}
