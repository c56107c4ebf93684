package main

import (
	"bufio"
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/sabuhakaya/Carties/pkg/config"
)

// ANSI
const (
	Reset    = "\033[0m"
	Bold     = "\033[1m"
	Dim      = "\033[2m"
	White    = "\033[97m"
	Black    = "\033[30m"
	Green    = "\033[32m"
	Yellow   = "\033[33m"
	Red      = "\033[31m"
	Cyan     = "\033[36m"
	BgGreen  = "\033[42m"
	BgYellow = "\033[43m"
	BgCyan   = "\033[46m"
)

// composeProject prefixes the container names docker compose creates for this stack.
const composeProject = "carties"

type shell struct {
	auctionURL string
	searchURL  string
	auctionDB  *sql.DB
	searchDB   *sql.DB
	client     *http.Client
}

func newShell() *shell {
	auctionCfg := config.LoadForService("auction")
	searchCfg := config.LoadForService("search")

	sh := &shell{
		auctionURL: auctionCfg.AuctionServiceURL,
		searchURL:  auctionCfg.SearchServiceURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
	// sql.Open only validates the DSN; reachability is checked per command.
	if db, err := sql.Open("postgres", auctionCfg.DatabaseURL); err == nil {
		sh.auctionDB = db
	}
	if db, err := sql.Open("postgres", searchCfg.DatabaseURL); err == nil {
		sh.searchDB = db
	}
	return sh
}

func (sh *shell) close() {
	if sh.auctionDB != nil {
		sh.auctionDB.Close()
	}
	if sh.searchDB != nil {
		sh.searchDB.Close()
	}
}

func main() {
	sh := newShell()
	defer sh.close()

	clearScreen()
	printBanner()
	sh.loop()
}

func (sh *shell) loop() {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(buildPrompt())
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if !sh.dispatch(input) {
			fmt.Printf("\n%s%s  Bye %s\n\n", BgCyan, Black, Reset)
			return
		}
		fmt.Println()
	}
}

// dispatch runs one command line. It returns false when the shell should exit.
func (sh *shell) dispatch(input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit", "q":
		return false
	case "help", "?":
		printHelp()
	case "clear", "cls":
		clearScreen()
		printBanner()
	case "status", "s":
		sh.printHealthChecks()
		fmt.Println()
		printDockerStatus()
	case "health", "h":
		sh.printHealthChecks()
	case "docker", "d":
		printDockerStatus()
	case "queues", "rabbit":
		printRabbitQueues()

	case "up":
		shellExec("docker", "compose", "up", "-d", "--build")
	case "down":
		shellExec("docker", "compose", "down", "-v")
	case "logs":
		if len(args) > 0 {
			shellExec("docker", "compose", "logs", "-f", "--tail=50", args[0])
		} else {
			shellExec("docker", "compose", "logs", "-f", "--tail=30")
		}

	case "auctions", "list":
		sh.listAuctions(args)
	case "get-auction", "get":
		if len(args) != 1 {
			printUsage("get-auction <id>")
			break
		}
		sh.getAuction(args[0])
	case "create-auction", "create":
		req, err := parseCreateArgs(args, time.Now())
		if err != nil {
			printUsage(createUsage + " (" + err.Error() + ")")
			break
		}
		sh.createAuction(req)
	case "delete-auction":
		if len(args) != 1 {
			printUsage("delete-auction <id>")
			break
		}
		sh.deleteAuction(args[0])
	case "search":
		sh.search(strings.Join(args, " "))

	case "projections":
		sh.countProjections()
	case "tombstones":
		sh.showTombstones()
	case "tables-auction":
		showTables(sh.auctionDB, "auction")
	case "tables-search":
		showTables(sh.searchDB, "search")
	case "sql-auction":
		rawSQL(sh.auctionDB, "auction", strings.TrimSpace(strings.TrimPrefix(input, cmd)))
	case "sql-search":
		rawSQL(sh.searchDB, "search", strings.TrimSpace(strings.TrimPrefix(input, cmd)))

	default:
		shellExecRaw(input)
	}
	return true
}

func buildPrompt() string {
	dir := getShortDir()
	branch := strings.TrimSpace(runCmd("git", "rev-parse", "--abbrev-ref", "HEAD"))
	if branch == "" {
		branch = "no-repo"
	}

	barBg := BgGreen
	state := "clean"
	if changed := strings.TrimSpace(runCmd("git", "status", "--porcelain")); changed != "" {
		barBg = BgYellow
		state = fmt.Sprintf("%d changed", len(strings.Split(changed, "\n")))
	}

	bar := fmt.Sprintf("%s%s %s  %s | %s %s", barBg, Black, dir, branch, state, Reset)
	return fmt.Sprintf("%s\n%s>%s ", bar, Cyan, Reset)
}

func getShortDir() string {
	dir, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	if home != "" && strings.HasPrefix(dir, home) {
		dir = "~" + dir[len(home):]
	}
	parts := strings.Split(dir, string(os.PathSeparator))
	if len(parts) > 2 {
		dir = "../" + strings.Join(parts[len(parts)-2:], "/")
	}
	return dir
}

func printBanner() {
	fmt.Println()
	fmt.Printf("  %s%s>> Carties operator shell%s\n", Bold, Cyan, Reset)
	fmt.Printf("  %sType 'help' for commands, or use any shell command%s\n", Dim, Reset)
	fmt.Println()
}

func printHelp() {
	fmt.Println()
	fmt.Printf("  %s%sCommands%s\n", Bold, White, Reset)
	fmt.Printf("  %sstatus%s  s    health + containers\n", Green, Reset)
	fmt.Printf("  %shealth%s  h    service health checks\n", Green, Reset)
	fmt.Printf("  %sdocker%s  d    container status\n", Green, Reset)
	fmt.Printf("  %squeues%s       rabbitmq queues\n", Green, Reset)
	fmt.Println()
	fmt.Printf("  %s--- Stack ---%s\n", Dim, Reset)
	fmt.Printf("  %sup%s / %sdown%s    start or stop the stack\n", Green, Reset, Green, Reset)
	fmt.Printf("  %slogs%s [svc]   tail logs\n", Green, Reset)
	fmt.Println()
	fmt.Printf("  %s--- Auctions ---%s\n", Dim, Reset)
	fmt.Printf("  %sauctions%s [date]      list auctions, optionally updated after date\n", Green, Reset)
	fmt.Printf("  %sget-auction%s <id>\n", Green, Reset)
	fmt.Printf("  %screate-auction%s %s\n", Green, Reset, strings.TrimPrefix(createUsage, "create-auction "))
	fmt.Printf("  %sdelete-auction%s <id>\n", Green, Reset)
	fmt.Println()
	fmt.Printf("  %s--- Search ---%s\n", Dim, Reset)
	fmt.Printf("  %ssearch%s [term]        query the search service\n", Green, Reset)
	fmt.Printf("  %sprojections%s          projection count and newest update\n", Green, Reset)
	fmt.Printf("  %stombstones%s           recent delete markers\n", Green, Reset)
	fmt.Println()
	fmt.Printf("  %s--- DB ---%s\n", Dim, Reset)
	fmt.Printf("  %stables-auction%s / %stables-search%s\n", Green, Reset, Green, Reset)
	fmt.Printf("  %ssql-auction%s / %ssql-search%s <query>\n", Green, Reset, Green, Reset)
	fmt.Println()
	fmt.Printf("  %sclear%s        clear screen\n", Green, Reset)
	fmt.Printf("  %sexit%s         quit shell\n", Green, Reset)
	fmt.Println()
	fmt.Printf("  %sAnything else is passed to your system shell.%s\n", Dim, Reset)
}

func printUsage(usage string) {
	fmt.Printf("  %sUsage: %s%s\n", Red, usage, Reset)
}

func printErr(err error) {
	fmt.Printf("  %s[x] %v%s\n", Red, err, Reset)
}

func shellExec(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		printErr(err)
	}
}

func shellExecRaw(input string) {
	bin, flag := "sh", "-c"
	if _, err := exec.LookPath("bash"); err == nil {
		bin = "bash"
	}
	cmd := exec.Command(bin, flag, input)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Run()
}

func runCmd(name string, args ...string) string {
	var out bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &out
	cmd.Run()
	return out.String()
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}
