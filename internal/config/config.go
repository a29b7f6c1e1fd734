package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Server    Server    `koanf:"server"`
	Storage   Storage   `koanf:"storage"`
	Vault     Vault     `koanf:"vault"`
	Database  Database  `koanf:"db"`
	Time      Time      `koanf:"time"`
	Recurring Recurring `koanf:"recurring"`
}

type Server struct {
	Addr string `koanf:"addr"`
}

// Storage selects where notes live: "vault" keeps them as markdown files
// on disk, "postgres" keeps them in a note table.
type Storage struct {
	Backend string `koanf:"backend"`
}

type Vault struct {
	Path          string `koanf:"path"`
	ExpenseFolder string `koanf:"expensefolder"`
	ScheduleNote  string `koanf:"schedulenote"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Time.Policy resolves naive date strings: "local", "utc", or a fixed
// hour offset like "+2" / "-5".
type Time struct {
	Policy string `koanf:"policy"`
}

type Recurring struct {
	BackfillCap   int `koanf:"backfillcap"`
	CommitRetries int `koanf:"commitretries"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Server: Server{
			Addr: ":8282",
		},
		Storage: Storage{
			Backend: "vault",
		},
		Vault: Vault{
			Path:          "./vault",
			ExpenseFolder: "Expenses",
			ScheduleNote:  "Expenses/Recurring.md",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "noteledger",
			Pass:   "",
			Name:   "noteledger",
			Schema: "noteledger",
		},
		Time: Time{
			Policy: "local",
		},
		Recurring: Recurring{
			BackfillCap:   24,
			CommitRetries: 3,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "NOTELEDGER_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "NOTELEDGER_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
