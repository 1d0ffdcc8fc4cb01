package report

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/cgast/depsentry/pkg/scan"
)

const (
	vulnCheckClass   = "depsentryDependencyVulnCheck"
	policyCheckClass = "depsentryDependencyPolicyCheck"
	offenderPrefix   = "Policy violated by "
)

// The XML report follows the JUnit layout so CI systems can display
// every dependency as a test case.
type testSuites struct {
	XMLName xml.Name  `xml:"testsuites"`
	Suite   testSuite `xml:"testsuite"`
}

type testSuite struct {
	Tests      int        `xml:"tests,attr"`
	Failures   int        `xml:"failures,attr"`
	Properties []property `xml:"properties>property"`
	Cases      []testCase `xml:"testcase"`
}

type property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type testCase struct {
	ClassName string    `xml:"classname,attr"`
	Name      string    `xml:"name,attr"`
	Failures  []failure `xml:"failure"`
}

type failure struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

func renderXML(res scan.Result, now time.Time) ([]byte, error) {
	set := res.Set
	suite := testSuite{
		Tests: len(set.FlatList),
		Properties: []property{
			{Name: "source", Value: res.Source},
			{Name: "timestamp", Value: now.Format(time.RFC3339)},
		},
	}

	vulnCases := make(map[string]int, len(set.FlatList))
	for _, dep := range set.FlatList {
		vulnCases[dep] = len(suite.Cases)
		suite.Cases = append(suite.Cases, testCase{ClassName: vulnCheckClass, Name: dep})
	}
	for _, v := range set.ConfirmedVulnerabilities {
		f := failure{
			Type: "confirmed_vulnerability",
			Text: fmt.Sprintf("Package name: %s\nVulnerability description: %s\nCVE: %s\nSeverity: %s",
				v.Name, v.Description, v.CVEID, v.OchronaSeverityScore),
		}
		if i, ok := vulnCases[v.FoundVersion]; ok {
			suite.Cases[i].Failures = append(suite.Cases[i].Failures, f)
		} else {
			suite.Cases = append(suite.Cases, testCase{ClassName: vulnCheckClass, Name: v.FoundVersion, Failures: []failure{f}})
		}
		suite.Failures++
	}

	if len(set.PolicyViolations) > 0 {
		policyCases := make(map[string]int, len(set.FlatList))
		for _, dep := range set.FlatList {
			policyCases[dep] = len(suite.Cases)
			suite.Cases = append(suite.Cases, testCase{ClassName: policyCheckClass, Name: dep})
		}
		for _, pv := range set.PolicyViolations {
			f := failure{Type: "policy_violation", Text: pv.Message}
			attached := false
			for _, offender := range offenders(pv.Message) {
				if i, ok := policyCases[offender]; ok {
					suite.Cases[i].Failures = append(suite.Cases[i].Failures, f)
					attached = true
				}
			}
			if !attached {
				suite.Cases = append(suite.Cases, testCase{ClassName: policyCheckClass, Name: pv.PolicyType, Failures: []failure{f}})
			}
			suite.Failures++
		}
	}

	body, err := xml.MarshalIndent(testSuites{Suite: suite}, "", "   ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// offenders extracts the dependencies named by an expression policy
// violation message.
func offenders(msg string) []string {
	rest, ok := strings.CutPrefix(msg, offenderPrefix)
	if !ok {
		return nil
	}
	return strings.Split(rest, ", ")
}
