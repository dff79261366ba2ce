package switchback

// Enumerable is the interface implemented by types that can only be represented by enumerable, constant values.
//
// Implementing a new Enumerable or adding a new constant value ought to include updating
// the String and Valid methods with the same values.
type Enumerable interface {
	String() string
	Valid() error
}
