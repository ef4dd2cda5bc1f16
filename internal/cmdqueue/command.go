package cmdqueue

import "strings"

// Command is one parsed queue line: a lowercase verb plus its arguments. The
// original line is kept for journaling.
type Command struct {
	Verb string
	Args []string
	Line string
}

// Parse splits a command line into verb and arguments. The verb is
// lowercased; argument case is preserved. An empty line parses to an empty
// verb.
func Parse(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Line: line}
	}
	return Command{
		Verb: strings.ToLower(fields[0]),
		Args: fields[1:],
		Line: line,
	}
}

// Arg joins all arguments back into a single string, for verbs whose sole
// argument is a path that may contain spaces.
func (c Command) Arg() string {
	return strings.Join(c.Args, " ")
}
