package cty

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { check.TestingT(t) }

type CtySuite struct {
	db *Database
}

var _ = check.Suite(&CtySuite{})

func (s *CtySuite) SetUpSuite(c *check.C) {
	var err error
	s.db, err = Load(context.Background(), FileSource{Path: testdataPath}, WithLogger(quietLogger))
	c.Assert(err, check.IsNil)
}

func (s *CtySuite) TestLoad(c *check.C) {
	c.Assert(s.db.Ready(), check.Equals, true)
	c.Assert(s.db.EntityCount(), check.Equals, 13)
	c.Assert(s.db.PrefixCount(), check.Equals, 131)

	e, ok := s.db.Entity(3)
	c.Assert(ok, check.Equals, true)
	c.Assert(e.Name, check.Equals, "United States")
	c.Assert(e.PrimaryPrefix, check.Equals, "K")

	_, ok = s.db.Entity(99)
	c.Assert(ok, check.Equals, false)
}

func (s *CtySuite) TestKnownCalls(c *check.C) {
	c.Assert(s.db.CheckKnownCalls(KnownCalls), check.IsNil)

	err := s.db.CheckKnownCalls([]KnownCall{{"LY1H", "LITHUANIA"}, {"W1AW", "United States"}})
	c.Assert(err, check.IsNil)

	err = s.db.CheckKnownCalls([]KnownCall{{"LY1H", "Poland"}})
	c.Assert(err, check.ErrorMatches, `lookup\("LY1H"\) = "Lithuania", want "Poland"`)

	err = s.db.CheckKnownCalls([]KnownCall{{"QQ1ABC", "Nowhere"}})
	c.Assert(err, check.ErrorMatches, `lookup\("QQ1ABC"\): no match.*`)
}

func (s *CtySuite) TestValidateRejectsSmallFile(c *check.C) {
	err := s.db.Validate()
	c.Assert(err, check.ErrorMatches, "entity count too low: got 13, want >= 300")
}

func (s *CtySuite) TestValidateFullFile(c *check.C) {
	path := os.Getenv("CTY_DAT")
	if path == "" {
		c.Skip("set CTY_DAT to a full cty.dat to run")
	}
	db, err := Load(context.Background(), FileSource{Path: path}, WithLogger(quietLogger))
	c.Assert(err, check.IsNil)
	c.Assert(db.Validate(), check.IsNil)
}

func (s *CtySuite) TestOverridePrefixKeptLiteral(c *check.C) {
	rule, ok := s.db.Prefix("VE8(2)[4]")
	c.Assert(ok, check.Equals, true)

	r, err := Fixup(rule, mustEntity(c, s.db, rule.EntityID))
	c.Assert(err, check.IsNil)
	c.Assert(r.EntityName, check.Equals, "Canada")
	c.Assert(r.CQZone, check.Equals, 2)
	c.Assert(r.ITUZone, check.Equals, 4)

	// VE8ABC shrinks to VE, which carries no overrides.
	r, ok, err = s.db.Lookup("VE8ABC")
	c.Assert(err, check.IsNil)
	c.Assert(ok, check.Equals, true)
	c.Assert(r.CQZone, check.Equals, 5)
}

func mustEntity(c *check.C, db *Database, id int) Entity {
	e, ok := db.Entity(id)
	c.Assert(ok, check.Equals, true)
	return e
}

func (s *CtySuite) TestConcurrentLookupsDuringReload(c *check.C) {
	db, err := Load(context.Background(), FileSource{Path: testdataPath}, WithLogger(quietLogger))
	c.Assert(err, check.IsNil)

	data, err := os.ReadFile(testdataPath)
	c.Assert(err, check.IsNil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, ok, err := db.Lookup("LY1H")
				if err != nil || !ok || r.EntityName != "Lithuania" {
					errs <- errors.New("lookup during reload saw partial tables")
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		err := db.Reload(context.Background(), ReaderSource{R: strings.NewReader(string(data))})
		c.Assert(err, check.IsNil)
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		c.Error(err)
	}
}

func (s *CtySuite) TestReloadCancelled(c *check.C) {
	db, err := Load(context.Background(), FileSource{Path: testdataPath}, WithLogger(quietLogger))
	c.Assert(err, check.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = db.Reload(ctx, FileSource{Path: testdataPath})
	c.Assert(errors.Is(err, context.Canceled), check.Equals, true)
	c.Assert(db.EntityCount(), check.Equals, 13)
}
