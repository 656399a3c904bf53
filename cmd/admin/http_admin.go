package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func portalsCmd(args []string) {
	fs := flag.NewFlagSet("portals", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	worldID := fs.String("world", "OVERWORLD", "world id")
	_ = fs.Parse(args)

	adminRequest(http.MethodGet, adminURL(*baseURL, "/admin/v1/portals", *worldID), 5*time.Second)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	worldID := fs.String("world", "OVERWORLD", "world id")
	_ = fs.Parse(args)

	adminRequest(http.MethodPost, adminURL(*baseURL, "/admin/v1/snapshot", *worldID), 10*time.Second)
}

func adminURL(base, path, worldID string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path + "?world=" + url.QueryEscape(worldID)
}

func adminRequest(method, u string, timeout time.Duration) {
	req, _ := http.NewRequest(method, u, nil)
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
