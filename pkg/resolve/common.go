package resolve

import "maps"

// defaultCommonStatements maps well-known names to their canonical import
// statements. Highest-priority resolution source; caller-supplied overrides
// replace entries per name, they never merge.
var defaultCommonStatements = map[string]string{
	"BaseModel":              "from pydantic import BaseModel  # noqa: E0611",
	"BeautifulSoup":          "from bs4 import BeautifulSoup",
	"call":                   "from unittest.mock import call",
	"CaptureFixture":         "from _pytest.capture import CaptureFixture",
	"CliRunner":              "from click.testing import CliRunner",
	"copyfile":               "from shutil import copyfile",
	"datetime":               "from datetime import datetime",
	"dedent":                 "from textwrap import dedent",
	"Enum":                   "from enum import Enum",
	"Faker":                  "from faker import Faker",
	"FrozenDateTimeFactory":  "from freezegun.api import FrozenDateTimeFactory",
	"LocalPath":              "from py._path.local import LocalPath",
	"LogCaptureFixture":      "from _pytest.logging import LogCaptureFixture",
	"Mock":                   "from unittest.mock import Mock",
	"ModelFactory":           "from pydantic_factories import ModelFactory",
	"patch":                  "from unittest.mock import patch",
	"StringIO":               "from io import StringIO",
	"suppress":               "from contextlib import suppress",
	"TempdirFactory":         "from _pytest.tmpdir import TempdirFactory",
	"YAMLError":              "from yaml import YAMLError",
}

// CommonStatements is the highest-priority provider.
type CommonStatements struct {
	table map[string]string
}

// NewCommonStatements builds the provider from the default table with the
// given per-name overrides applied. An override replaces the default entry
// for that name.
func NewCommonStatements(overrides map[string]string) *CommonStatements {
	table := make(map[string]string, len(defaultCommonStatements)+len(overrides))
	maps.Copy(table, defaultCommonStatements)
	maps.Copy(table, overrides)

	return &CommonStatements{table: table}
}

// Name implements Provider.
func (c *CommonStatements) Name() string {
	return "common-statements"
}

// Lookup implements Provider.
func (c *CommonStatements) Lookup(name string) (string, bool) {
	stmt, ok := c.table[name]

	return stmt, ok
}
