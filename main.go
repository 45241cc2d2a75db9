/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "tgrelay/cmd"

func main() {
	cmd.Execute()
}
