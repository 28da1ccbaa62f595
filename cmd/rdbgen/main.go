// rdbgen 为带 rdb 标签的结构体生成列名常量
//
//	//go:generate rdbgen -type User,UserItem
//
// 未指定文件时读取 go generate 设置的 $GOFILE，输出到同目录的 <file>_rdb.go
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/log"
)

func main() {
	types := flag.String("type", "", "逗号分隔的结构体名，为空时处理所有带 rdb 标签的结构体")
	output := flag.String("output", "", "输出文件，只能与单个输入文件一起使用")
	flag.Parse()

	l := log.Default().WithGroup("rdbgen")
	if err := run(flag.Args(), splitTypes(*types), *output); err != nil {
		l.Error("generate failed", "error", err)
		os.Exit(1)
	}
}

func splitTypes(s string) []string {
	var types []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func run(files []string, types []string, output string) error {
	if len(files) == 0 {
		if gofile := os.Getenv("GOFILE"); gofile != "" {
			files = []string{gofile}
		}
	}
	if len(files) == 0 {
		return errors.New("no input file")
	}
	if output != "" && len(files) != 1 {
		return errors.New("-output requires exactly one input file")
	}

	for _, file := range files {
		pkg, infos, err := ParseFile(file, nil, types)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			log.Default().Warn("no rdb model found", "file", file)
			continue
		}
		src, err := Generate(pkg, infos)
		if err != nil {
			return errors.WithMessagef(err, "generate %s failed", file)
		}
		path := output
		if path == "" {
			path = OutputPath(file)
		}
		if err := os.WriteFile(path, src, 0644); err != nil {
			return errors.Wrapf(err, "write %s failed", path)
		}
	}
	return nil
}
