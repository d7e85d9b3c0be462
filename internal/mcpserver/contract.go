package mcpserver

// LinkGrammar describes the link syntaxes linkpeek recognises and how a
// link path is mapped to a vault file.
const LinkGrammar = `# linkpeek Link Grammar

## Editing mode (line + cursor)

A link is found only when the cursor lies strictly inside its span: a cursor
on the first or last character boundary does not count. Grammars are tried in
this order and the first one with a hit wins:

1. Wiki links: ` + "`" + `[[target]]` + "`" + `, ` + "`" + `[[target|alias]]` + "`" + `, embeds ` + "`" + `![[target]]` + "`" + `.
   The alias is display text and is dropped.
2. Markdown links: ` + "`" + `[text](target)` + "`" + `, including ` + "`" + `<angle brackets>` + "`" + ` and an
   optional "title". Percent-escapes in vault targets are decoded.
3. Bare ` + "`" + `http://` + "`" + ` and ` + "`" + `https://` + "`" + ` URLs.
4. Bare ` + "`" + `www.` + "`" + ` URLs.
5. Bare IPv4 addresses with an optional port and path (` + "`" + `192.168.1.10:8080/x` + "`" + `).

Trailing punctuation (` + "`" + `.,;:!?` + "`" + `) is not part of a bare URL. Cursor offsets are
counted in UTF-16 code units, as editors report them.

## Reading mode (rendered HTML)

The clicked element is marked with ` + "`" + `data-linkpeek-target` + "`" + `. Its link text is the
first non-empty attribute of ` + "`" + `data-file-path` + "`" + `, ` + "`" + `filesource` + "`" + `, ` + "`" + `data-path` + "`" + `,
` + "`" + `data-href` + "`" + `, ` + "`" + `href` + "`" + `, ` + "`" + `src` + "`" + `, then its trimmed text. Two containers override this:

- inside ` + "`" + `.grid-item` + "`" + ` the text of ` + "`" + `.grid-item-title` + "`" + ` is used;
- inside an outgoing-links pane item the subtext and text are joined as
  ` + "`" + `subtext#text` + "`" + ` for headings and ` + "`" + `subtext/text` + "`" + ` for files.

## Normalisation

- ` + "`" + `Note#Heading` + "`" + ` → path ` + "`" + `Note` + "`" + `, fragment ` + "`" + `Heading` + "`" + `; ` + "`" + `Note#^block` + "`" + ` is a block reference.
- Breadcrumbs ` + "`" + `A > B > ^block1` + "`" + ` → path ` + "`" + `A` + "`" + `, fragment ` + "`" + `^block1` + "`" + `.
- Targets starting with ` + "`" + `http://` + "`" + `, ` + "`" + `https://` + "`" + `, ` + "`" + `www.` + "`" + `, ` + "`" + `192.` + "`" + ` or ` + "`" + `127.` + "`" + ` are external
  URLs and are never split on ` + "`" + `#` + "`" + `.

## Vault resolution

A link path maps to a file by, in order: exact path, path + ` + "`" + `.md` + "`" + `, base name
(shortest path wins; ` + "`" + `folder/Note` + "`" + ` must match a path suffix), then frontmatter
` + "`" + `aliases` + "`" + `. Matching is case-insensitive. Hidden folders and the folders in
` + "`" + `vault.ignore` + "`" + ` never match.

A resolved note carries its title (frontmatter ` + "`" + `title` + "`" + `, first H1, or file name).
When the link has a fragment that names no heading or ` + "`" + `^block` + "`" + ` in the note,
` + "`" + `fragment_missing` + "`" + ` is true. Headings outside fenced code count.
`
