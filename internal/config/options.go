// Package config parses and validates the command line of the check.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Name is the plugin name used in usage and version output
const Name = "check_icinga2_object_status"

// Version is the plugin version, overridable with -ldflags
var Version = "1.0.0"

// DefaultTimeout for the API request
const DefaultTimeout = 30 * time.Second

// Options holds every command line option of the check
type Options struct {
	API       string        `short:"a" long:"api" value-name:"URL" description:"URL to your icinga2 api (required)" validate:"required,http_url"`
	User      string        `short:"u" long:"user" value-name:"USER:PASS" description:"Icinga2 api user:password (required)" validate:"required,userpass"`
	Hostname  string        `short:"H" long:"hostname" value-name:"NAME" description:"Icinga2 host object to check status for (required)" validate:"required"`
	Service   string        `short:"s" long:"service" value-name:"NAME" description:"Icinga2 service name to check status for. If defined status for host!service will be fetched"`
	Insecure  bool          `short:"k" long:"insecure" description:"INSECURE: do not verify the TLS certificate of the api"`
	CAFile    string        `long:"ca-file" value-name:"FILE" description:"PEM bundle used to verify the TLS certificate of the api" validate:"omitempty,file"`
	Timeout   time.Duration `short:"t" long:"timeout" value-name:"DURATION" default:"30s" description:"Timeout of the api request" validate:"gt=0"`
	Verbose   []bool        `short:"v" long:"verbose" description:"Log to stderr, repeat for more detail (-v warn, -vv info, -vvv debug)"`
	LogFormat string        `long:"log-format" choice:"text" choice:"json" default:"text" description:"Format of the logs written to stderr"`
	Version   bool          `short:"V" long:"version" description:"Print version and exit"`
}

const usageExamples = `Examples:

for a host
  check_icinga2_object_status --api 'https://icinga:5665' --user 'root:icinga' --hostname icingahost

for a service
  check_icinga2_object_status --api 'https://icinga:5665' --user 'root:icinga' --hostname icingahost --service 'Linux disk'`

// Parse reads options from args (without the program name).
// A help request is returned as a *flags.Error of type flags.ErrHelp whose
// message is the rendered usage text.
func Parse(args []string) (*Options, error) {
	opts := &Options{}

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = Name
	parser.Usage = "--api <url> --user <user:pass> --hostname <name> [--service <name>]"
	parser.LongDescription = "Fetches the last check result of an Icinga 2 host or service object " +
		"and reports it as plugin output.\n\n" + usageExamples

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}

	return opts, nil
}

// IsHelp reports whether err is a help request from Parse
func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}

// Credentials is the basic auth pair taken from --user
type Credentials struct {
	Username string
	Password string
}

// SplitCredentials splits "username:password" on the first colon.
// The username cannot contain a colon, the password can.
func SplitCredentials(user string) (Credentials, error) {
	username, password, found := strings.Cut(user, ":")
	if !found {
		return Credentials{}, fmt.Errorf("user must be given as username:password")
	}
	if username == "" {
		return Credentials{}, fmt.Errorf("username must not be empty")
	}
	return Credentials{Username: username, Password: password}, nil
}

// Credentials returns the basic auth pair of the options
func (o *Options) Credentials() (Credentials, error) {
	return SplitCredentials(o.User)
}

// BaseURL returns the api URL without trailing slashes
func (o *Options) BaseURL() string {
	return strings.TrimRight(o.API, "/")
}

// LoggingConfig returns the logger settings implied by the options
func (o *Options) LoggingConfig() LoggingConfig {
	return LoggingConfig{Verbosity: len(o.Verbose), Format: o.LogFormat}
}

// VersionString returns the line printed by --version
func VersionString() string {
	return fmt.Sprintf("%s v%s", Name, Version)
}
