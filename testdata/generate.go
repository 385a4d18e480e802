// Command generate writes the sample tables used by the plans in testdata/plans.
//
//	go run ./testdata/generate.go -out testdata/data
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

type Employee struct {
	ID        int64    `parquet:"id"`
	Name      string   `parquet:"name"`
	DeptID    *int64   `parquet:"dept_id,optional"`
	ManagerID *int64   `parquet:"manager_id,optional"`
	Salary    *float64 `parquet:"salary,optional"`
	Hired     int32    `parquet:"hired,date"`
}

type Department struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

type Event struct {
	ID     int64     `parquet:"id"`
	UserID int64     `parquet:"user_id"`
	Kind   string    `parquet:"kind"`
	At     time.Time `parquet:"at,timestamp(millisecond)"`
	Tags   []string  `parquet:"tags,list"`
}

func ptr[T any](v T) *T { return &v }

func days(year int, month time.Month, day int) int32 {
	return int32(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func main() {
	out := flag.String("out", "testdata/data", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*out, 0755); err != nil {
		log.Fatal(err)
	}

	employees := []Employee{
		{ID: 1, Name: "alice", DeptID: ptr[int64](10), Salary: ptr(120000.0), Hired: days(2018, 3, 1)},
		{ID: 2, Name: "bob", DeptID: ptr[int64](10), ManagerID: ptr[int64](1), Salary: ptr(95000.0), Hired: days(2019, 7, 15)},
		{ID: 3, Name: "charlie", DeptID: ptr[int64](20), ManagerID: ptr[int64](1), Salary: ptr(88000.0), Hired: days(2020, 1, 6)},
		{ID: 4, Name: "diana", DeptID: ptr[int64](20), ManagerID: ptr[int64](3), Salary: ptr(88000.0), Hired: days(2021, 9, 1)},
		{ID: 5, Name: "eve", ManagerID: ptr[int64](2), Hired: days(2023, 2, 20)},
	}
	departments := []Department{
		{ID: 10, Name: "engineering"},
		{ID: 20, Name: "operations"},
		{ID: 30, Name: "research"},
	}
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	events := [][]Event{
		{
			{ID: 1, UserID: 1, Kind: "login", At: base, Tags: []string{"web"}},
			{ID: 2, UserID: 2, Kind: "login", At: base.Add(time.Minute), Tags: []string{"mobile", "beta"}},
		},
		{
			{ID: 3, UserID: 1, Kind: "purchase", At: base.Add(time.Hour)},
			{ID: 4, UserID: 3, Kind: "login", At: base.Add(2 * time.Hour), Tags: []string{"web"}},
		},
	}

	write(filepath.Join(*out, "employees.parquet"), employees)
	write(filepath.Join(*out, "departments.parquet"), departments)
	for i, part := range events {
		write(filepath.Join(*out, "events", "part-"+string(rune('1'+i))+".parquet"), part)
	}
}

func write[T any](path string, rows []T) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatal(err)
	}
	file, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Generated %s with %d rows", path, len(rows))
}
