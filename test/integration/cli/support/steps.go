package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"github.com/cucumber/godog"
)

// RegisterSteps wires the step definitions into a scenario.
func (testCtx *TestContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" with rows "([^"]*)"$`, testCtx.anImageWithRows)
	sc.Step(`^a file "([^"]*)" containing:$`, testCtx.aFileContaining)
	sc.Step(`^I run "silkgen ?([^"]*)"$`, testCtx.iRun)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should contain "([^"]*)"$`, testCtx.theErrorShouldContain)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)" (\d+) times?$`, testCtx.theFileShouldContainTimes)
	sc.Step(`^the files "([^"]*)" and "([^"]*)" should be identical$`, testCtx.theFilesShouldBeIdentical)
	sc.Step(`^the file "([^"]*)" should define footprint "([^"]*)"$`, testCtx.theFileShouldDefineFootprint)
	sc.Step(`^the JSON output should have pixel pitch "([^"]*)"$`, testCtx.theJSONOutputShouldHavePixelPitch)
	sc.Step(`^the JSON output should have (\d+) polygons? on "([^"]*)"$`, testCtx.theJSONOutputShouldHavePolygonsOn)
}

// anImageWithRows writes an image given as "/"-separated rows.
func (testCtx *TestContext) anImageWithRows(name, rows string) error {
	return testCtx.WriteImage(name, strings.Split(rows, "/"))
}

func (testCtx *TestContext) aFileContaining(name string, body *godog.DocString) error {
	return os.WriteFile(testCtx.Path(name), []byte(body.Content), 0o600)
}

func (testCtx *TestContext) iRun(ctx context.Context, command string) error {
	testCtx.RunCommand(ctx, strings.Fields(command))
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("%q failed: %w\nstderr:\n%s", testCtx.LastCommand, testCtx.LastError, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("%q succeeded, expected a failure\nstdout:\n%s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output does not contain %q:\n%s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains %q:\n%s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldContain(text string) error {
	if testCtx.LastError == nil {
		return errors.New("the command did not fail")
	}
	if !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("error %q does not contain %q", testCtx.LastError, text)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("expected file %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file %s should not exist", name)
	}
	return nil
}

func (testCtx *TestContext) readFile(name string) (string, error) {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func (testCtx *TestContext) theFileShouldContain(name, text string) error {
	content, err := testCtx.readFile(name)
	if err != nil {
		return err
	}
	if !strings.Contains(content, text) {
		return fmt.Errorf("%s does not contain %q", name, text)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContainTimes(name, text, times string) error {
	want, err := strconv.Atoi(times)
	if err != nil {
		return err
	}
	content, err := testCtx.readFile(name)
	if err != nil {
		return err
	}
	if got := strings.Count(content, text); got != want {
		return fmt.Errorf("%s contains %q %d times, want %d", name, text, got, want)
	}
	return nil
}

func (testCtx *TestContext) theFilesShouldBeIdentical(a, b string) error {
	first, err := testCtx.readFile(a)
	if err != nil {
		return err
	}
	second, err := testCtx.readFile(b)
	if err != nil {
		return err
	}
	if first != second {
		return fmt.Errorf("%s and %s differ", a, b)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldDefineFootprint(name, footprint string) error {
	content, err := testCtx.readFile(name)
	if err != nil {
		return err
	}
	if header := "(footprint " + strconv.Quote(footprint) + "\n"; !strings.HasPrefix(content, header) {
		return fmt.Errorf("%s does not start with %q", name, header)
	}
	return nil
}

func (testCtx *TestContext) outputDocument() (export.Document, error) {
	var doc export.Document
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &doc); err != nil {
		return doc, fmt.Errorf("output is not a JSON document: %w", err)
	}
	return doc, nil
}

func (testCtx *TestContext) theJSONOutputShouldHavePixelPitch(pitch string) error {
	want, err := units.ParseDim(pitch)
	if err != nil {
		return err
	}
	doc, err := testCtx.outputDocument()
	if err != nil {
		return err
	}
	if doc.Settings.PixelPitch != want {
		return fmt.Errorf("pixel pitch is %s, want %s", doc.Settings.PixelPitch, want)
	}
	return nil
}

func (testCtx *TestContext) theJSONOutputShouldHavePolygonsOn(count int, layer string) error {
	doc, err := testCtx.outputDocument()
	if err != nil {
		return err
	}
	got := 0
	for _, p := range doc.Polygons {
		if p.Layer == layer {
			got++
		}
	}
	if got != count {
		return fmt.Errorf("%d polygons on %s, want %d", got, layer, count)
	}
	return nil
}
