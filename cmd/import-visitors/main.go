// Command import-visitors copies attendee rows from an external MySQL table
// into the local store, optionally issuing vouchers and emailing them in the
// same run. Column names are auto-detected from common candidates unless
// overridden.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/subosito/gotenv"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/application/service"
	"github.com/acampov/mealpass/internal/config"
	"github.com/acampov/mealpass/internal/domain/entity"
	"github.com/acampov/mealpass/internal/infrastructure/email"
	"github.com/acampov/mealpass/internal/infrastructure/persistence/repository"
	sqlitedb "github.com/acampov/mealpass/internal/infrastructure/persistence/sqlite"
	"github.com/acampov/mealpass/internal/infrastructure/qr"
	"github.com/acampov/mealpass/internal/infrastructure/roster"
	"github.com/acampov/mealpass/migrations"
	"github.com/acampov/mealpass/pkg/database"
	"github.com/acampov/mealpass/pkg/utils"
)

var (
	nameCandidates   = []string{"nombre", "nombre_completo", "full_name", "name"}
	idCandidates     = []string{"identificacion", "documento", "id_number", "dni"}
	emailCandidates  = []string{"email", "correo", "correo_electronico"}
	activeCandidates = []string{"activo", "status", "estado", "is_active"}
)

func main() {
	var (
		host          = flag.String("host", "", "MySQL host of the source database (required)")
		dbPort        = flag.Int("port", 3306, "MySQL port")
		user          = flag.String("user", "", "MySQL user (required)")
		password      = flag.String("password", "", "MySQL password")
		dbName        = flag.String("db", "", "source database name (required)")
		table         = flag.String("table", "visitantes", "table to import from")
		nameField     = flag.String("name-field", "", "column holding the attendee name (auto-detected if empty)")
		idField       = flag.String("id-field", "", "column holding the identification (auto-detected if empty)")
		emailField    = flag.String("email-field", "", "column holding the email (auto-detected if empty)")
		activeField   = flag.String("active-field", "", "column indicating active status (optional)")
		limit         = flag.Int("limit", 0, "limit imported rows, 0 = all")
		dryRun        = flag.Bool("dry-run", false, "print what would be created without writing")
		generateCodes = flag.Bool("generate-codes", false, "issue vouchers for each imported attendee")
		sendEmails    = flag.Bool("send-emails", false, "email issued vouchers (implies -generate-codes)")
		configPath    = flag.String("config", "configs/config.yaml", "path to the service configuration")
	)
	flag.Parse()

	if *host == "" || *user == "" || *dbName == "" {
		fmt.Fprintln(os.Stderr, "-host, -user and -db are required")
		flag.Usage()
		os.Exit(2)
	}
	if *sendEmails {
		*generateCodes = true
	}

	_ = gotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", OutputPath: "stderr", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		*user, *password, *host, *dbPort, *dbName)
	sourceDB, err := roster.Open(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to source database: %v\n", err)
		os.Exit(1)
	}
	defer sourceDB.Close()

	rows, cols, err := querySource(ctx, sourceDB, *table, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query table %s: %v\n", *table, err)
		os.Exit(1)
	}
	fmt.Printf("Rows found: %d\n", len(rows))

	nameCol := pick(*nameField, cols, nameCandidates)
	idCol := pick(*idField, cols, idCandidates)
	emailCol := pick(*emailField, cols, emailCandidates)
	activeCol := pick(*activeField, cols, activeCandidates)
	if emailCol == "" {
		fmt.Fprintln(os.Stderr, "Could not detect the email column; use -email-field")
		os.Exit(1)
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open local database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	txManager := sqlitedb.NewDB(db.DB, logger)
	voucherRepo := repository.NewVoucherRepository(db.DB, logger)
	attendeeRepo := repository.NewAttendeeRepository(db.DB, logger)

	var sink port.NotificationSink = email.NewDisabledSink(logger)
	if *sendEmails {
		if cfg.SMTP.Host == "" {
			fmt.Fprintln(os.Stderr, "-send-emails requires smtp configuration")
			os.Exit(1)
		}
		sink = email.NewSender(email.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			SenderName: cfg.SMTP.SenderName,
			EventName:  cfg.Event.Name,
		}, qr.NewRenderer(cfg.Event.QRSize), logger)
	}

	svcLogger := utils.NewSugarAdapter(logger)
	issuance := service.NewIssuanceService(voucherRepo, txManager, sink, svcLogger)

	created, skipped := 0, 0
	for _, record := range rows {
		name := utils.SanitizeString(record[nameCol])
		externalID := strings.TrimSpace(record[idCol])
		emailAddr := strings.TrimSpace(record[emailCol])
		active := true
		if activeCol != "" {
			active = truthy(record[activeCol])
		}

		if emailAddr == "" {
			skipped++
			fmt.Printf("Skipped row without email (id=%s)\n", externalID)
			continue
		}
		if err := utils.ValidateEmail(emailAddr); err != nil {
			skipped++
			fmt.Printf("Skipped row with invalid email %q (id=%s)\n", emailAddr, externalID)
			continue
		}
		if externalID == "" {
			skipped++
			fmt.Printf("Skipped row without identification (email=%s)\n", emailAddr)
			continue
		}

		if *dryRun {
			fmt.Printf("[DRY] Create attendee: name=%s id=%s email=%s active=%v\n",
				name, externalID, emailAddr, active)
			created++
			continue
		}

		attendee := &entity.Attendee{
			Name:         name,
			ExternalID:   externalID,
			Email:        emailAddr,
			Active:       active,
			RegisteredAt: time.Now().UTC(),
		}
		if err := attendeeRepo.Create(ctx, attendee); err != nil {
			if err == entity.ErrDuplicateAttendee {
				skipped++
				fmt.Printf("Attendee %s already exists\n", emailAddr)
				continue
			}
			fmt.Fprintf(os.Stderr, "Failed to create attendee %s: %v\n", emailAddr, err)
			skipped++
			continue
		}
		created++

		if *generateCodes {
			result, err := issuance.IssueVouchers(ctx, attendee.Identity())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to issue vouchers for %s: %v\n", externalID, err)
				continue
			}
			fmt.Printf("Issued %d vouchers for %s (notification: %s)\n",
				len(result.Vouchers), externalID, result.Notification)
		}
	}

	fmt.Printf("Done. Created: %d, skipped: %d\n", created, skipped)
}

// querySource reads up to limit rows from the source table, returning each
// row as a column-name keyed map of stringified values.
func querySource(ctx context.Context, db *sql.DB, table string, limit int) ([]map[string]string, []string, error) {
	query := fmt.Sprintf("SELECT * FROM `%s`", table)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var records []map[string]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		record := make(map[string]string, len(cols))
		for i, col := range cols {
			record[col] = values[i].String
		}
		records = append(records, record)
	}
	return records, cols, rows.Err()
}

// pick returns override when given, otherwise the first candidate present in
// cols.
func pick(override string, cols []string, candidates []string) string {
	if override != "" {
		return override
	}
	for _, candidate := range candidates {
		for _, col := range cols {
			if strings.EqualFold(col, candidate) {
				return col
			}
		}
	}
	return ""
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "inactivo", "inactive":
		return false
	}
	return true
}
