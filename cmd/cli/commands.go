package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sabuhakaya/Carties/pkg/health"
	"github.com/sabuhakaya/Carties/pkg/models"
)

const createUsage = "create-auction <make> <model> <year> <color> [mileage] [reservePrice]"

// parseCreateArgs builds a create request from shell arguments. Auctions made
// from the shell end seven days from now and carry a placeholder image.
func parseCreateArgs(args []string, now time.Time) (models.CreateAuctionRequest, error) {
	if len(args) < 4 || len(args) > 6 {
		return models.CreateAuctionRequest{}, errors.New("wrong number of arguments")
	}
	year, err := strconv.Atoi(args[2])
	if err != nil {
		return models.CreateAuctionRequest{}, fmt.Errorf("year %q is not a number", args[2])
	}
	req := models.CreateAuctionRequest{
		Make:       args[0],
		Model:      args[1],
		Year:       year,
		Color:      args[3],
		ImageURL:   "https://cdn.carties.dev/placeholder.jpg",
		AuctionEnd: now.UTC().Add(7 * 24 * time.Hour).Truncate(time.Second),
	}
	if len(args) > 4 {
		if req.Mileage, err = strconv.Atoi(args[4]); err != nil {
			return models.CreateAuctionRequest{}, fmt.Errorf("mileage %q is not a number", args[4])
		}
	}
	if len(args) > 5 {
		if req.ReservePrice, err = strconv.Atoi(args[5]); err != nil {
			return models.CreateAuctionRequest{}, fmt.Errorf("reserve price %q is not a number", args[5])
		}
	}
	return req, nil
}

// searchURL builds the search request for a free-text term.
func searchURL(base, term string) string {
	q := url.Values{}
	if term != "" {
		q.Set("searchTerm", term)
	}
	q.Set("pageSize", "20")
	return base + "/search?" + q.Encode()
}

// ---------------------------------------------------------------------------
// Service commands
// ---------------------------------------------------------------------------

func (sh *shell) printHealthChecks() {
	fmt.Printf("  %s%sHealth%s\n", Bold, White, Reset)

	endpoints := []struct {
		name string
		url  string
	}{
		{"auction", sh.auctionURL + "/health"},
		{"search", sh.searchURL + "/health"},
		{"rabbitmq", "http://localhost:15672/"},
	}
	for _, ep := range endpoints {
		resp, err := sh.client.Get(ep.url)
		if err != nil {
			fmt.Printf("  %s[-]%s %-12s %soffline%s\n", Red, Reset, ep.name, Red, Reset)
			continue
		}
		var rep health.Report
		_ = json.NewDecoder(resp.Body).Decode(&rep)
		resp.Body.Close()
		if rep.Status == health.StatusDegraded {
			fmt.Printf("  %s[!]%s %-12s %sdegraded%s %s\n", Yellow, Reset, ep.name, Yellow, Reset, formatReport(rep))
			continue
		}
		fmt.Printf("  %s[+]%s %-12s %sok%s %s\n", Green, Reset, ep.name, Green, Reset, formatReport(rep))
	}
}

// formatReport renders checks and counters as sorted key=value pairs.
func formatReport(rep health.Report) string {
	var parts []string
	for name, state := range rep.Checks {
		parts = append(parts, name+"="+state)
	}
	for name, n := range rep.Counts {
		parts = append(parts, fmt.Sprintf("%s=%d", name, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func (sh *shell) listAuctions(args []string) {
	target := sh.auctionURL + "/auctions"
	if len(args) > 0 {
		target += "?date=" + url.QueryEscape(args[0])
	}
	var auctions []models.Auction
	if err := sh.getJSON(target, &auctions); err != nil {
		printErr(err)
		return
	}

	fmt.Printf("  %s%-38s %-12s %-12s %-6s %-10s %s%s\n", Bold, "ID", "MAKE", "MODEL", "YEAR", "STATUS", "VERSION", Reset)
	fmt.Printf("  %s%s%s\n", Dim, strings.Repeat("-", 90), Reset)
	for _, a := range auctions {
		color := Green
		if a.Status != models.StatusLive {
			color = Yellow
		}
		fmt.Printf("  %-38s %-12s %-12s %-6d %s%-10s%s %d\n",
			a.ID, a.Make, a.Model, a.Year, color, a.Status, Reset, a.Version)
	}
	fmt.Printf("  %s%d auctions%s\n", Dim, len(auctions), Reset)
}

func (sh *shell) getAuction(id string) {
	var a models.Auction
	if err := sh.getJSON(sh.auctionURL+"/auctions/"+url.PathEscape(id), &a); err != nil {
		printErr(err)
		return
	}
	fmt.Printf("  %sid:%s       %s\n", Dim, Reset, a.ID)
	fmt.Printf("  %sitem:%s     %d %s %s (%s, %d mi)\n", Dim, Reset, a.Year, a.Make, a.Model, a.Color, a.Mileage)
	fmt.Printf("  %sseller:%s   %s\n", Dim, Reset, a.Seller)
	fmt.Printf("  %sstatus:%s   %s\n", Dim, Reset, a.Status)
	fmt.Printf("  %sends:%s     %s\n", Dim, Reset, a.AuctionEnd.Format(time.RFC3339))
	fmt.Printf("  %supdated:%s  %s\n", Dim, Reset, a.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("  %sversion:%s  %d\n", Dim, Reset, a.Version)
}

func (sh *shell) createAuction(req models.CreateAuctionRequest) {
	body, err := json.Marshal(req)
	if err != nil {
		printErr(err)
		return
	}
	resp, err := sh.client.Post(sh.auctionURL+"/auctions", "application/json", bytes.NewReader(body))
	if err != nil {
		printErr(err)
		return
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusCreated {
		fmt.Printf("  %s[ok] created%s %s\n  %s\n", Green, Reset, resp.Header.Get("Location"), out)
		return
	}
	fmt.Printf("  %s[x] %d%s %s\n", Red, resp.StatusCode, Reset, out)
}

func (sh *shell) deleteAuction(id string) {
	req, err := http.NewRequest(http.MethodDelete, sh.auctionURL+"/auctions/"+url.PathEscape(id), nil)
	if err != nil {
		printErr(err)
		return
	}
	resp, err := sh.client.Do(req)
	if err != nil {
		printErr(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		fmt.Printf("  %s[ok] deleted%s %s\n", Green, Reset, id)
		return
	}
	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("  %s[x] %d%s %s\n", Red, resp.StatusCode, Reset, out)
}

type searchResult struct {
	Results []struct {
		ID         string    `json:"id"`
		Make       string    `json:"make"`
		Model      string    `json:"model"`
		Seller     string    `json:"seller"`
		AuctionEnd time.Time `json:"auctionEnd"`
		Version    int64     `json:"version"`
	} `json:"results"`
	PageCount  int `json:"pageCount"`
	TotalCount int `json:"totalCount"`
}

func (sh *shell) search(term string) {
	var page searchResult
	if err := sh.getJSON(searchURL(sh.searchURL, term), &page); err != nil {
		printErr(err)
		return
	}
	for _, r := range page.Results {
		fmt.Printf("  %-38s %-12s %-12s %-14s %s v%d\n",
			r.ID, r.Make, r.Model, r.Seller, r.AuctionEnd.Format("2006-01-02 15:04"), r.Version)
	}
	fmt.Printf("  %s%d results, %d pages%s\n", Dim, page.TotalCount, page.PageCount, Reset)
}

func (sh *shell) getJSON(target string, out any) error {
	resp, err := sh.client.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %d %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

// ---------------------------------------------------------------------------
// Search DB commands
// ---------------------------------------------------------------------------

func (sh *shell) countProjections() {
	if !reachable(sh.searchDB, "search") {
		return
	}
	var count int
	var latest sql.NullTime
	err := sh.searchDB.QueryRow(`SELECT COUNT(*), MAX(updated_at) FROM auction_projections`).Scan(&count, &latest)
	if err != nil {
		printErr(err)
		return
	}
	fmt.Printf("  %s%d%s projections\n", Bold, count, Reset)
	if latest.Valid {
		fmt.Printf("  %snewest update: %s%s\n", Dim, latest.Time.Format(time.RFC3339), Reset)
	}
}

func (sh *shell) showTombstones() {
	if !reachable(sh.searchDB, "search") {
		return
	}
	rows, err := sh.searchDB.Query(`SELECT id, version, deleted_at
		FROM auction_tombstones ORDER BY deleted_at DESC LIMIT 20`)
	if err != nil {
		printErr(err)
		return
	}
	defer rows.Close()

	fmt.Printf("  %s%-38s %-8s %s%s\n", Bold, "ID", "VERSION", "DELETED_AT", Reset)
	for rows.Next() {
		var id string
		var version int64
		var at time.Time
		if err := rows.Scan(&id, &version, &at); err != nil {
			printErr(err)
			return
		}
		fmt.Printf("  %-38s %-8d %s\n", id, version, at.Format("2006-01-02 15:04:05"))
	}
}

// ---------------------------------------------------------------------------
// Broker and containers
// ---------------------------------------------------------------------------

func printDockerStatus() {
	fmt.Printf("  %s%sDocker%s\n", Bold, White, Reset)

	output := strings.TrimSpace(runCmd("docker", "ps", "-a", "--filter", "name="+composeProject,
		"--format", "{{.Names}}|{{.Status}}"))
	if output == "" {
		fmt.Printf("  %s[-] no containers%s\n", Dim, Reset)
		return
	}
	for _, line := range strings.Split(output, "\n") {
		name, status, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		name = strings.TrimSuffix(strings.TrimPrefix(name, composeProject+"-"), "-1")
		color, icon := Red, "[-]"
		if strings.Contains(status, "Up") {
			color, icon = Green, "[+]"
		}
		fmt.Printf("  %s%s%s %-22s %s%s%s\n", color, icon, Reset, name, Dim, status, Reset)
	}
}

func printRabbitQueues() {
	fmt.Printf("  %s%sRabbitMQ Queues%s\n", Bold, White, Reset)

	output := strings.TrimSpace(runCmd("docker", "exec", composeProject+"-rabbitmq-1",
		"rabbitmqctl", "list_queues", "name", "messages", "consumers", "--quiet"))
	if output == "" {
		fmt.Printf("  %s[-] rabbitmq not reachable%s\n", Dim, Reset)
		return
	}

	fmt.Printf("  %s%-35s %8s %10s%s\n", Dim, "QUEUE", "MSGS", "CONSUMERS", Reset)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		color := Green
		if fields[1] != "0" {
			color = Yellow
		}
		// Anything sitting in a dead-letter queue needs an operator.
		if strings.HasSuffix(fields[0], ".dlq") && fields[1] != "0" {
			color = Red
		}
		fmt.Printf("  %s%-35s %s%8s%s %10s\n", Dim, fields[0], color, fields[1], Reset, fields[2])
	}
}

// ---------------------------------------------------------------------------
// Shared DB helpers
// ---------------------------------------------------------------------------

func reachable(db *sql.DB, label string) bool {
	if db == nil || db.Ping() != nil {
		fmt.Printf("  %s[x] %s db not reachable%s\n", Red, label, Reset)
		return false
	}
	return true
}

func showTables(db *sql.DB, label string) {
	if !reachable(db, label) {
		return
	}
	rows, err := db.Query("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename")
	if err != nil {
		printErr(err)
		return
	}
	defer rows.Close()
	fmt.Printf("  %s%s%s tables:\n", Bold, label, Reset)
	for rows.Next() {
		var name string
		rows.Scan(&name)
		fmt.Printf("  - %s\n", name)
	}
}

func rawSQL(db *sql.DB, label, query string) {
	if query == "" {
		printUsage("sql-" + label + " <query>")
		return
	}
	if !reachable(db, label) {
		return
	}
	rows, err := db.Query(query)
	if err != nil {
		printErr(err)
		return
	}
	defer rows.Close()

	cols, _ := rows.Columns()
	fmt.Printf("  %s%s%s\n", Bold, strings.Join(cols, "\t"), Reset)
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			printErr(err)
			return
		}
		fmt.Printf("  %s\n", formatRow(vals))
	}
}

func formatRow(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case nil:
			parts[i] = "NULL"
		case []byte:
			parts[i] = string(t)
		case time.Time:
			parts[i] = t.Format(time.RFC3339)
		default:
			parts[i] = fmt.Sprintf("%v", t)
		}
	}
	return strings.Join(parts, "\t")
}
