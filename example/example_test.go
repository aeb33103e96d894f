package example

func ExampleStackVM() {
	StackVM()
	// Output:
	// ((1 . 2) . 3)
	// collected: 0, remaining: 5
}

func ExampleDirectHeap() {
	DirectHeap()
	// Output:
	// live: 2, threshold: 8
}
