package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"otbookfix/database"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	dbPath := flag.String("db", "otbook_rehearsal.sqlite", "Путь к создаваемой репетиционной базе")
	driver := flag.String("driver", database.DriverMattn, "Драйвер SQLite: sqlite3 или sqlite")
	force := flag.Bool("force", false, "Удалить существующий файл перед созданием")
	flag.Parse()

	fmt.Println("================================================================================")
	fmt.Println("РЕПЕТИЦИОННАЯ БАЗА КАТАЛОГА: OGT No.49-60 ДО КОРРЕКТИРОВКИ")
	fmt.Println("================================================================================")

	if _, err := os.Stat(*dbPath); err == nil {
		if !*force {
			log.Fatalf("Файл %s уже существует, используйте -force", *dbPath)
		}
		if err := os.Remove(*dbPath); err != nil {
			log.Fatalf("Ошибка удаления %s: %v", *dbPath, err)
		}
	}

	fmt.Println("\n[1/3] Открытие базы...")
	db, err := database.NewDBWithConfig(*dbPath, database.DBConfig{Driver: *driver})
	if err != nil {
		log.Fatalf("Ошибка открытия БД: %v", err)
	}
	defer db.Close()
	fmt.Printf("✓ %s (%s)\n", *dbPath, db.Driver())

	fmt.Println("\n[2/3] Инициализация схемы...")
	if err := database.InitCatalogSchema(db.GetDB()); err != nil {
		log.Fatalf("Ошибка инициализации схемы: %v", err)
	}
	fmt.Println("✓ Схема инициализирована")

	fmt.Println("\n[3/3] Создание групп и элементов...")
	ctx := context.Background()
	seeded, err := database.SeedOGTFixture(ctx, db)
	if err != nil {
		log.Fatalf("Ошибка заполнения: %v", err)
	}
	fmt.Printf("✓ Создано групп и элементов: %d\n", seeded)

	total, err := db.CountCatalogItems(ctx)
	if err != nil {
		log.Fatalf("Ошибка подсчета: %v", err)
	}

	fmt.Println("\n================================================================================")
	fmt.Printf("Готово. Элементов в catalog_items: %d\n", total)
	fmt.Printf("Дальше: catalogfix apply --db %s --dry-run\n", *dbPath)
	fmt.Println("================================================================================")
}
