package main

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/derive"
)

// FieldInfo 字段与列的对应关系
type FieldInfo struct {
	Name   string
	Column string
	PK     bool
}

// StructInfo 带 rdb 标签的结构体
type StructInfo struct {
	Name   string
	Table  string
	Fields []FieldInfo
}

// ParseFile 解析 go 源文件中带 rdb 标签的结构体，types 为空时处理全部结构体
func ParseFile(filename string, src any, types []string) (string, []StructInfo, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return "", nil, errors.Wrapf(err, "parse %s failed", filename)
	}

	structs := map[string]*ast.StructType{}
	var order []string
	for _, decl := range node.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			if st, ok := ts.Type.(*ast.StructType); ok && ts.TypeParams == nil {
				structs[ts.Name.Name] = st
				order = append(order, ts.Name.Name)
			}
		}
	}

	wanted := map[string]bool{}
	for _, name := range types {
		if _, ok := structs[name]; !ok {
			return "", nil, errors.Errorf("type %s not found in %s", name, filename)
		}
		wanted[name] = true
	}

	tableNames := tableNames(node)
	var infos []StructInfo
	for _, name := range order {
		if len(wanted) != 0 && !wanted[name] {
			continue
		}
		info := StructInfo{Name: name, Table: name}
		if table, ok := tableNames[name]; ok {
			info.Table = table
		}
		tagged, err := collectFields(structs, structs[name], name, &info.Fields)
		if err != nil {
			return "", nil, err
		}
		// 没有 rdb 标签的结构体不是表模型，显式指定时除外
		if !tagged && !wanted[name] {
			continue
		}
		infos = append(infos, info)
	}
	return node.Name.Name, infos, nil
}

func collectFields(structs map[string]*ast.StructType, st *ast.StructType, typeName string, fields *[]FieldInfo) (bool, error) {
	tagged := false
	for _, f := range st.Fields.List {
		raw, hasTag := "", false
		if f.Tag != nil {
			unquoted, err := strconv.Unquote(f.Tag.Value)
			if err != nil {
				return false, errors.Wrapf(err, "invalid tag on %s", typeName)
			}
			raw, hasTag = reflect.StructTag(unquoted).Lookup("rdb")
		}
		tagged = tagged || hasTag

		tag, err := derive.ParseTag(raw)
		if err != nil {
			return false, errors.WithMessagef(err, "%s", typeName)
		}
		if tag.Ignore {
			continue
		}

		// 未打标签的匿名结构体，同一文件内定义时展开
		if len(f.Names) == 0 {
			ident, ok := f.Type.(*ast.Ident)
			if !ok || hasTag || !ast.IsExported(ident.Name) {
				continue
			}
			embedded, ok := structs[ident.Name]
			if !ok {
				continue
			}
			sub, err := collectFields(structs, embedded, ident.Name, fields)
			if err != nil {
				return false, err
			}
			tagged = tagged || sub
			continue
		}

		for _, name := range f.Names {
			if !name.IsExported() {
				continue
			}
			column := tag.Column
			if column == "" {
				column = name.Name
			}
			for _, exist := range *fields {
				if exist.Column == column {
					return false, errors.Errorf("%s.%s: duplicate column %s", typeName, name.Name, column)
				}
			}
			*fields = append(*fields, FieldInfo{Name: name.Name, Column: column, PK: tag.PrimaryKey})
		}
	}
	return tagged, nil
}

// tableNames 收集形如 func (T) TableName() string { return "literal" } 的表名
func tableNames(node *ast.File) map[string]string {
	names := map[string]string{}
	for _, decl := range node.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) != 1 || fn.Name.Name != "TableName" || fn.Body == nil {
			continue
		}
		recv := fn.Recv.List[0].Type
		if star, ok := recv.(*ast.StarExpr); ok {
			recv = star.X
		}
		ident, ok := recv.(*ast.Ident)
		if !ok || len(fn.Body.List) != 1 {
			continue
		}
		ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
		if !ok || len(ret.Results) != 1 {
			continue
		}
		lit, ok := ret.Results[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			continue
		}
		if s, err := strconv.Unquote(lit.Value); err == nil {
			names[ident.Name] = s
		}
	}
	return names
}

// Generate 为每个结构体生成表名常量、列名常量、列名列表以及字段名到列名的映射
func Generate(pkg string, infos []StructInfo) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by rdbgen. DO NOT EDIT.")

	for _, info := range infos {
		f.Commentf("%s 表 %s 的列名", info.Name, info.Table)
		f.Const().DefsFunc(func(defs *jen.Group) {
			defs.Id(info.Name + "Table").Op("=").Lit(info.Table)
			for _, field := range info.Fields {
				defs.Id(columnConst(info, field)).Op("=").Lit(field.Column)
			}
		})

		f.Commentf("%sColumns %s 的全部列，顺序与字段声明一致", info.Name, info.Name)
		f.Var().Id(info.Name + "Columns").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
			for _, field := range info.Fields {
				g.Id(columnConst(info, field))
			}
		})

		f.Commentf("%sPrimaryKey %s 的主键列", info.Name, info.Name)
		f.Var().Id(info.Name + "PrimaryKey").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
			for _, field := range info.Fields {
				if field.PK {
					g.Id(columnConst(info, field))
				}
			}
		})

		fields := append([]FieldInfo{}, info.Fields...)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		f.Commentf("%sFieldColumns %s 字段名到列名", info.Name, info.Name)
		f.Var().Id(info.Name + "FieldColumns").Op("=").Map(jen.String()).String().Values(jen.DictFunc(func(d jen.Dict) {
			for _, field := range fields {
				d[jen.Lit(field.Name)] = jen.Id(columnConst(info, field))
			}
		}))
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, errors.Wrap(err, "render failed")
	}
	return buf.Bytes(), nil
}

func columnConst(info StructInfo, field FieldInfo) string {
	return info.Name + "Column" + field.Name
}

// OutputPath a/b/user.go 的输出文件为 a/b/user_rdb.go
func OutputPath(input string) string {
	return strings.TrimSuffix(input, ".go") + "_rdb.go"
}
