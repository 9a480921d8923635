// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ServerStartFailedId
	UpstreamUnreachableId
	InvalidCredentialsId
	DiagramDirUnwritableId
)

type (
	// Id identifies a catalog entry.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry with Markdown guidance for one failure class.
	Issue struct {
		id       Id
		title    string
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id:    ConfigLoadFailedId,
		title: "config-load-failed",
		mdMsg: `
# Failed to load configuration!

execproxy reads ` + "`config.cue`" + ` from the config directory, the current
directory, or the path given with ` + "`--config`" + `.

## Things you can try:
- Print the effective configuration:
~~~
$ execproxy config show
~~~

- Write a fresh default file and edit it:
~~~
$ execproxy config init
~~~

- Check values against the schema: ` + "`fallback_policy`" + ` must be
  ` + "`demo`" + ` or ` + "`echo_error`" + `, durations look like ` + "`\"15s\"`" + `.`,
	}

	serverStartFailedIssue = &Issue{
		id:    ServerStartFailedId,
		title: "server-start-failed",
		mdMsg: `
# The proxy could not start listening!

## Common causes:
- Another process already uses the port (8001 by default)
- The host address is not assigned to this machine
- Binding a port below 1024 without privileges

## Things you can try:
- Pick another port:
~~~
$ EXECPROXY_SERVER_PORT=8081 execproxy serve
~~~`,
	}

	upstreamUnreachableIssue = &Issue{
		id:    UpstreamUnreachableId,
		title: "upstream-unreachable",
		mdMsg: `
# The code-execution service is unreachable!

Requests are still answered, but with fallback payloads.

## Things you can try:
- Verify network access to the upstream URL
- Raise ` + "`upstream.timeout`" + ` if the service is slow
- Run a single request to see the raw failure:
~~~
$ execproxy probe --language python3
~~~`,
		docLinks: []HttpLink{"https://docs.jdoodle.com/integrating-compiler-ide-to-your-application/compiler-api"},
	}

	invalidCredentialsIssue = &Issue{
		id:    InvalidCredentialsId,
		title: "invalid-credentials",
		mdMsg: `
# The upstream rejected the credentials!

## Things you can try:
- Set the client id and secret through the environment or a ` + "`.env`" + ` file:
~~~
EXECPROXY_UPSTREAM_CLIENT_ID=...
EXECPROXY_UPSTREAM_CLIENT_SECRET=...
~~~

- Check the daily credit allowance of your account`,
		docLinks: []HttpLink{"https://docs.jdoodle.com/integrating-compiler-ide-to-your-application/compiler-api"},
	}

	diagramDirUnwritableIssue = &Issue{
		id:    DiagramDirUnwritableId,
		title: "diagram-dir-unwritable",
		mdMsg: `
# The diagram directory is not writable!

## Things you can try:
- Point ` + "`diagrams.dir`" + ` at a directory you own
- Disable the diagram endpoints with ` + "`diagrams.enabled: false`" + ``,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		serverStartFailedIssue.Id():    serverStartFailedIssue,
		upstreamUnreachableIssue.Id():  upstreamUnreachableIssue,
		invalidCredentialsIssue.Id():   invalidCredentialsIssue,
		diagramDirUnwritableIssue.Id(): diagramDirUnwritableIssue,
	}
)

func (i *Issue) Id() Id {
	return i.id
}

// Title is the stable kebab-case name used by 'execproxy issue <title>'.
func (i *Issue) Title() string {
	return i.title
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the guidance with the named glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		sb.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds a catalog entry by title.
func Lookup(title string) (*Issue, bool) {
	all := Values()
	idx := slices.IndexFunc(all, func(i *Issue) bool { return i.title == title })
	if idx < 0 {
		return nil, false
	}
	return all[idx], true
}
