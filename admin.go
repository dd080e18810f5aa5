package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/util"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create users and groups, grant permissions and set up review chains",
	Example: `  docflow init --insert --group editors
  docflow init --insert --user alice
  docflow init --join --user alice --group editors
  docflow init --make-admin --group admins
  docflow init --grant create --path /news --group editors
  docflow init --chain review --group editors --path /news`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initFlags struct {
	insert    bool
	join      bool
	makeAdmin bool
	chain     string
	grant     string
	group     string
	user      string
	path      string
	children  bool
}

var acceptDueCmd = &cobra.Command{
	Use:   "accept-due",
	Short: "Accept every scheduled request which is due",
	Args:  cobra.NoArgs,
	RunE:  runAcceptDue,
}

var acceptDueFlags struct {
	as  string
	now string
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the most recent event log entries as json lines, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

var eventsLimit int

func init() {
	f := initCmd.Flags()
	f.BoolVar(&initFlags.insert, "insert", false, "creates the given group or user")
	f.BoolVar(&initFlags.join, "join", false, "joins the given user to the given group")
	f.BoolVar(&initFlags.makeAdmin, "make-admin", false, "gives admin permissions on the root folder to the given group")
	f.StringVar(&initFlags.chain, "chain", "", "appends the given group to the review chain `name`, creating it if necessary, and assigns the chain to --path if given")
	f.StringVar(&initFlags.grant, "grant", "", "grants `permission` (none, read, create, remove, admin) on --path to the given group, \"revoke\" removes the rule")
	f.StringVar(&initFlags.group, "group", "", "specifies a group `name`")
	f.StringVar(&initFlags.user, "user", "", "specifies a user `name`")
	f.StringVar(&initFlags.path, "path", "", "specifies a document or folder `path`")
	f.BoolVar(&initFlags.children, "children-only", false, "the chain assignment applies to the children of --path only")
	initCmd.MarkFlagsMutuallyExclusive("insert", "join", "make-admin", "chain", "grant")
	rootCmd.AddCommand(initCmd)

	acceptDueCmd.Flags().StringVar(&acceptDueFlags.as, "as", "", "accept as this `user`, who must be allowed to publish")
	acceptDueCmd.Flags().StringVar(&acceptDueFlags.now, "now", "", "pretend the current time is `time` (RFC 3339 or \"2006-01-02 15:04\")")
	acceptDueCmd.MarkFlagRequired("as")
	rootCmd.AddCommand(acceptDueCmd)

	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 100, "print at most `n` entries")
	rootCmd.AddCommand(eventsCmd)
}

var errNothingToDo = errors.New("nothing to do, see --help")

func runInit(cmd *cobra.Command, args []string) error {

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var fl = initFlags
	switch {
	case fl.insert && fl.group != "":
		return a.insertGroup(fl.group)
	case fl.insert && fl.user != "":
		return a.insertUser(fl.user, os.Stdin, cmd.OutOrStdout())
	case fl.join && fl.group != "" && fl.user != "":
		return a.join(fl.group, fl.user)
	case fl.makeAdmin && fl.group != "":
		return a.grant(fl.group, "/", auth.Admin)
	case fl.grant != "" && fl.group != "" && fl.path != "":
		if fl.grant == "revoke" {
			return a.revoke(fl.group, fl.path)
		}
		perm, ok := auth.ParsePermission(fl.grant)
		if !ok {
			return fmt.Errorf("unknown permission: %s", fl.grant)
		}
		return a.grant(fl.group, fl.path, perm)
	case fl.chain != "" && fl.group != "":
		return a.extendChain(fl.chain, fl.group, fl.path, fl.children)
	}
	return errNothingToDo
}

func (a *app) insertGroup(name string) error {
	if _, err := a.auth.InsertGroup(name); err != nil {
		return fmt.Errorf(`error creating group "%s": %w`, name, err)
	}
	a.log.Info().Str("group", name).Msg("created group")
	return nil
}

// readPassword reads a password without echo if in is a terminal, and a line otherwise.
func readPassword(in *os.File, out io.Writer, prompt string) ([]byte, error) {
	fmt.Fprint(out, prompt)
	defer fmt.Fprintln(out)
	if term.IsTerminal(int(in.Fd())) {
		return term.ReadPassword(int(in.Fd()))
	}
	var line []byte
	var buf = make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 && buf[0] != '\n' {
			line = append(line, buf[0])
			continue
		}
		if n == 1 || err == io.EOF {
			return bytes.TrimSuffix(line, []byte("\r")), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (a *app) insertUser(name string, in *os.File, out io.Writer) error {

	pass1, err := readPassword(in, out, fmt.Sprintf("password for user %s: ", name))
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	pass2, err := readPassword(in, out, "repeat password: ")
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	if !bytes.Equal(pass1, pass2) {
		return errors.New("passwords don't match")
	}

	user, err := a.auth.InsertUser(name)
	if err != nil {
		return fmt.Errorf("error creating user %s: %w", name, err)
	}

	if err := a.auth.SetPassword(user, string(pass1)); err != nil {
		return fmt.Errorf("error setting password: %w", err)
	}

	a.log.Info().Str("user", user.Name()).Msg("created user")
	return nil
}

func (a *app) join(groupname string, username string) error {

	group, err := a.auth.GetGroupByName(groupname)
	if err != nil {
		return fmt.Errorf("error getting group %s: %w", groupname, err)
	}

	user, err := a.user(username)
	if err != nil {
		return err
	}

	if err := a.auth.Join(group, user); err != nil {
		return fmt.Errorf("error joining: %w", err)
	}
	return nil
}

func (a *app) grant(groupname, path string, perm auth.Permission) error {

	group, err := a.auth.GetGroupByName(groupname)
	if err != nil {
		return fmt.Errorf("error getting group %s: %w", groupname, err)
	}

	if err := a.auth.AddAccessRule(path, group.ID(), perm); err != nil {
		return fmt.Errorf("error granting %s on %s: %w", perm, path, err)
	}
	a.log.Info().Str("group", groupname).Str("path", path).Stringer("permission", perm).Msg("granted")
	return nil
}

func (a *app) revoke(groupname, path string) error {

	group, err := a.auth.GetGroupByName(groupname)
	if err != nil {
		return fmt.Errorf("error getting group %s: %w", groupname, err)
	}

	return a.auth.RemoveAccessRule(path, group.ID())
}

// extendChain appends a group to a review chain. The last group of a chain is the one which may publish.
func (a *app) extendChain(chainName, groupname, path string, childrenOnly bool) error {

	group, err := a.auth.GetGroupByName(groupname)
	if err != nil {
		return fmt.Errorf("error getting group %s: %w", groupname, err)
	}

	chain, err := a.auth.GetChainByName(chainName)
	if err != nil {
		if chain, err = a.auth.InsertChain(chainName); err != nil {
			return fmt.Errorf("error creating chain %s: %w", chainName, err)
		}
	}

	groups, err := chain.Groups()
	if err != nil {
		return err
	}
	if err := a.auth.UpdateChain(chain, append(groups, group.ID())); err != nil {
		return fmt.Errorf("error updating chain %s: %w", chainName, err)
	}

	if path != "" {
		if err := a.auth.AssignChain(path, childrenOnly, chain.ID()); err != nil {
			return fmt.Errorf("error assigning chain %s to %s: %w", chainName, path, err)
		}
	}
	return nil
}

func runAcceptDue(cmd *cobra.Command, args []string) error {

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.user(acceptDueFlags.as)
	if err != nil {
		return err
	}

	var now = time.Now()
	if acceptDueFlags.now != "" {
		if now, err = util.ParseTime(acceptDueFlags.now); err != nil {
			return err
		}
	}

	accepted, err := a.manager.AcceptDue(context.Background(), now, user)
	for _, r := range accepted {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", r.ID, r.Type, r.HandleID)
	}
	return err
}

func runEvents(cmd *cobra.Command, args []string) error {

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.events.Recent(context.Background(), eventsLimit)
	if err != nil {
		return err
	}

	var enc = json.NewEncoder(cmd.OutOrStdout())
	for i := len(entries) - 1; i >= 0; i-- {
		if err := enc.Encode(entries[i]); err != nil {
			return err
		}
	}
	return nil
}
