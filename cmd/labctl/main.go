// Package main 是管理命令行 labctl 的入口点
package main

import "lab-reservation-server/internal/cli"

func main() {
	cli.Execute()
}
