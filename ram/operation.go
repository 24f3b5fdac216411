// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package ram

// Operation is a node of the nested search tree inside an INSERT
// statement. Scan, Lookup and Aggregate each bind one search level and
// wrap a nested Body Operation; Project is the leaf every body
// ultimately terminates in.
type Operation interface {
	Kind() OperationKind
}

// Scan iterates Rel. If Pattern is a wildcard the iteration is a full
// scan; otherwise it is an equal-range query on Pattern's constrained
// columns. LevelNum is the search level this scan binds.
// PureExistence, when true, means the Body is evaluated at most once
// iff the matched range is non-empty (a pure existence check).
type Scan struct {
	Rel           string
	Pattern       Pattern
	LevelNum      int
	PureExistence bool
	Cond          Condition
	Body          Operation
}

func (Scan) Kind() OperationKind { return KScan }

// Lookup unpacks the record reference stored at tuple position
// (RefLevel, RefPos) into a new level's tuple, skipping the nested
// body if the reference is null.
type Lookup struct {
	RefLevel int
	RefPos   int
	Arity    int
	LevelNum int
	Cond     Condition
	Body     Operation
}

func (Lookup) Kind() OperationKind { return KLookup }

// Aggregate computes Fun over Target for every tuple of Rel matching
// Pattern, binds the result at LevelNum, then continues into Body.
// COUNT may short-circuit to Rel's size when Pattern is a wildcard;
// MIN/MAX skip Body entirely when the matched range is empty.
type Aggregate struct {
	Rel      string
	Pattern  Pattern
	Fun      AggFunc
	Target   Value
	LevelNum int
	Cond     Condition
	Body     Operation
}

func (Aggregate) Kind() OperationKind { return KAggregate }

// Project computes Values left to right and inserts the resulting
// tuple into Rel, unless FilterRel is non-empty and already contains
// that tuple.
type Project struct {
	Rel       string
	Values    []Value
	FilterRel string
}

func (Project) Kind() OperationKind { return KProject }
