// Command dbase3 is an interactive command-language console over the
// table and index engines in pkg/dbf and pkg/xdx: it reads one command
// per line, parses it with pkg/parser, and executes it against a single
// pkg/exec.Context. Given a script file argument it runs the script
// instead of prompting; given a directory it starts interactively with
// that working directory.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkfoss/dbase3/internal/styles"
	"github.com/mkfoss/dbase3/pkg/dbferr"
	"github.com/mkfoss/dbase3/pkg/exec"
	"github.com/mkfoss/dbase3/pkg/parser"
)

func main() {
	os.Exit(run())
}

func run() int {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	script := ""
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintln(os.Stderr, "usage: dbase3 [script-file | working-directory]")
			return 1
		}
		info, statErr := os.Stat(arg)
		switch {
		case statErr == nil && info.IsDir():
			wd = arg
		default:
			script = arg
			wd = filepath.Dir(arg)
		}
	}

	ctx := exec.New(wd, func(s string) { fmt.Println(s) })
	if script != "" {
		return runScript(ctx, script)
	}

	fmt.Println(styles.Header("dbase3"))
	fmt.Println(styles.Dim("type a command, or QUIT to exit"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(styles.PromptTitle(". "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		runLine(ctx, line)
		if ctx.Quit() {
			break
		}
		ctx.SetCancel(false)
	}
	return 0
}

// runScript parses the whole script (so IF/ENDIF and DO WHILE/ENDDO
// blocks can span lines) and executes each command, continuing past
// command errors the way the REPL does; CANCEL or QUIT stops the script.
func runScript(ctx *exec.Context, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.Error("cannot open script "+path))
		return 1
	}

	cmds, p := parser.ParseProgram(string(src))
	for _, msg := range p.Errors {
		fmt.Println(styles.Error(msg))
	}
	for _, cmd := range cmds {
		if err := ctx.Execute(cmd); err != nil {
			fmt.Println(styles.Error(errorLine(err)))
		}
		if ctx.Quit() || ctx.Cancel() {
			break
		}
	}
	return 0
}

func runLine(ctx *exec.Context, line string) {
	cmd, p := parser.ParseLine(line)
	if p.Failed {
		fmt.Println(styles.Error(strings.Join(p.Errors, "; ")))
		return
	}
	if err := ctx.Execute(cmd); err != nil {
		fmt.Println(styles.Error(errorLine(err)))
	}
}

// errorLine renders err as spec.md §7's user-visible form:
// "Error: <kind text> — <message>".
func errorLine(err error) string {
	kind, msg := dbferr.KindOf(err), err.Error()
	var e *dbferr.Error
	if dbferr.As(err, &e) {
		msg = e.Message
	}
	return fmt.Sprintf("Error: %s — %s", kind, msg)
}
