package main

import "github.com/joshdurbin/strava-trends/internal/cmd"

func main() {
	cmd.Execute()
}
