package localization_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/nls/localization"
)

type LoaderTestSuite struct {
	suite.Suite
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, &LoaderTestSuite{})
}

func (s *LoaderTestSuite) TestLoad() {
	testCases := []struct {
		name     string
		code     string
		module   string
		expected map[string]string
	}{
		{
			name:   "json translation file",
			code:   "deu",
			module: "messages",
			expected: map[string]string{
				"greeting.hello": "Hallo, {0}!",
				"greeting.bye":   "Auf Wiedersehen",
				"save":           "Speichern",
			},
		},
		{
			name:   "toml translation file",
			code:   "fra",
			module: "messages",
			expected: map[string]string{
				"greeting.hello": "Bonjour, {0}!",
				"greeting.bye":   "Au revoir",
			},
		},
	}

	loader := localization.NewLoader("testdata", localization.WithContentDir("out"))
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			translations, err := loader.Load(context.Background(), tc.code, tc.module)
			s.Require().NoError(err)
			s.Equal(tc.expected, translations)
		})
	}
}

func (s *LoaderTestSuite) TestLoadDropsCommentSiblings() {
	loader := localization.NewLoader("testdata", localization.WithContentDir("out"))

	translations, err := loader.Load(context.Background(), "deu", "messages")
	s.Require().NoError(err)
	s.NotContains(translations, "_save.comment")
	s.Contains(translations, "save")
}

func (s *LoaderTestSuite) TestLoadWithoutContentDir() {
	loader := localization.NewLoader("testdata")

	translations, err := loader.Load(context.Background(), "ita", "messages")
	s.Require().NoError(err)
	s.Equal(map[string]string{"greeting.hello": "Ciao, {0}!"}, translations)
}

func (s *LoaderTestSuite) TestLoadMissing() {
	loader := localization.NewLoader("testdata", localization.WithContentDir("out"))

	testCases := []struct {
		name   string
		code   string
		module string
	}{
		{name: "unknown language", code: "jpn", module: "messages"},
		{name: "unknown module", code: "deu", module: "other"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := loader.Load(context.Background(), tc.code, tc.module)
			s.Require().ErrorIs(err, localization.ErrNoTranslations)
		})
	}
}

func (s *LoaderTestSuite) TestLoadUnparseableFile() {
	loader := localization.NewLoader("testdata", localization.WithContentDir("out"))

	_, err := loader.Load(context.Background(), "bad", "messages")
	s.Require().Error(err)
	s.NotErrorIs(err, localization.ErrNoTranslations)
}

func (s *LoaderTestSuite) TestBundle() {
	loader := localization.NewLoader("testdata", localization.WithContentDir("out"))

	bundle, err := loader.Bundle("deu")
	s.Require().NoError(err)
	s.Require().NotNil(bundle)

	_, err = loader.Bundle("jpn")
	s.Require().ErrorIs(err, localization.ErrNoTranslations)
}

func (s *LoaderTestSuite) TestLanguages() {
	loader := localization.NewLoader("testdata")

	codes, err := loader.Languages()
	s.Require().NoError(err)
	s.Equal([]string{"bad", "deu", "fra", "ita"}, codes)
}
