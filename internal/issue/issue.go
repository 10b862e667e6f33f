// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	ConfigLoadFailedId Id = iota + 1
	RootNotFoundId
	WatchLimitReachedId
	AlreadyRunningId
	PermissionDeniedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide with the given glamour style ("dark", "light",
// "notty" or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ appmenu config show
~~~

- Recreate a default file:
~~~
$ appmenu config init
~~~

## Valid settings:
~~~cue
root_path: "/Applications"
ignoring_parenthesized: false
~~~`,
	}

	rootNotFoundIssue = &Issue{
		id: RootNotFoundId,
		mdMsg: `
# Applications directory not found!

The directory the menu is built from does not exist or is not a directory.

## Things you can try:
- Point appmenu at your applications directory:
~~~
$ appmenu config set root_path /Applications
~~~

- Or override it for one run:
~~~
$ APPMENU_ROOT_PATH=$HOME/Applications appmenu show
~~~`,
	}

	watchLimitReachedIssue = &Issue{
		id: WatchLimitReachedId,
		mdMsg: `
# Too many watched directories!

The operating system refused to watch more directories, so changes are no
longer detected.

## Things you can try:
- Raise the inotify limit on Linux:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~

- Lower the recursion depth:
~~~
$ appmenu watch --max-depth 3
~~~`,
		extLinks: []HttpLink{"https://man7.org/linux/man-pages/man7/inotify.7.html"},
	}

	alreadyRunningIssue = &Issue{
		id: AlreadyRunningId,
		mdMsg: `
# appmenu is already watching!

Another ` + "`appmenu watch`" + ` process holds the lock in the configuration
directory.

## Things you can try:
- Stop the other process and retry
- Use ` + "`appmenu show`" + ` for a one-shot listing`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A file that appmenu needs could not be read or written.

## Things you can try:
- Check the permissions of the configuration directory
- Check that the applications directory is readable`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		rootNotFoundIssue.Id():      rootNotFoundIssue,
		watchLimitReachedIssue.Id(): watchLimitReachedIssue,
		alreadyRunningIssue.Id():    alreadyRunningIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
	}
)

// Values returns every known issue ordered by Id.
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
