package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printFn and printlnFn are test seams for REPL output.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println
)

// execIface is the command surface the REPL drives. App implements it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Guest(ctx context.Context) error
	Logout(ctx context.Context) error
	ShowAllergies(ctx context.Context) error
	SetAllergies(ctx context.Context, args []string) error
	Scan(ctx context.Context, args []string) error
	ScanText(ctx context.Context) error
	History(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, guest, status, exit"
	helpLoggedIn  = "Available commands: allergies, setallergies [names], scan [image], scantext, " +
		"history, export <file.md>, status, logout, exit"
)

// runREPL reads commands line by line from in and dispatches them to a.
// Handler errors are printed and the loop goes on. It returns on EOF or on
// "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("foodie (%s)> ", statusFn()))

		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "guest":
			cmdErr = a.Guest(ctx)
		case "status":
			cmdErr = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "logout", "allergies", "setallergies", "scan", "scantext", "history", "export":
			if !a.isLoggedIn() {
				printlnFn("Please login, register or start a guest session first")
				continue
			}
			switch cmd {
			case "logout":
				cmdErr = a.Logout(ctx)
			case "allergies":
				cmdErr = a.ShowAllergies(ctx)
			case "setallergies":
				cmdErr = a.SetAllergies(ctx, args)
			case "scan":
				cmdErr = a.Scan(ctx, args)
			case "scantext":
				cmdErr = a.ScanText(ctx)
			case "history":
				cmdErr = a.History(ctx)
			case "export":
				cmdErr = a.Export(ctx, args)
			}

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
